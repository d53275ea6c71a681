package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wydtm/tmsrv/internal/adminhttp"
	"github.com/wydtm/tmsrv/internal/ai"
	"github.com/wydtm/tmsrv/internal/config"
	coresys "github.com/wydtm/tmsrv/internal/core/system"
	"github.com/wydtm/tmsrv/internal/data"
	"github.com/wydtm/tmsrv/internal/handler"
	"github.com/wydtm/tmsrv/internal/model"
	"github.com/wydtm/tmsrv/internal/netio"
	"github.com/wydtm/tmsrv/internal/netio/packet"
	"github.com/wydtm/tmsrv/internal/persist"
	"github.com/wydtm/tmsrv/internal/scripting"
	"github.com/wydtm/tmsrv/internal/security"
	"github.com/wydtm/tmsrv/internal/system"
	"github.com/wydtm/tmsrv/internal/world"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(serverName string, serverID int) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m               tmsrv  v0.1.0               \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m         WYD 相容 · Go 遊戲伺服器          \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1m伺服器:\033[0m %s \033[90m(編號: %d)\033[0m\n\n", serverName, serverID)
}

func printSection(title string) {
	displayWidth := 0
	for _, r := range title {
		if r > 0x7F {
			displayWidth += 2
		} else {
			displayWidth++
		}
	}
	lineLen := 46 - displayWidth - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	displayWidth := 0
	for _, r := range label {
		if r > 0x7F {
			displayWidth += 2
		} else {
			displayWidth++
		}
	}
	dotsLen := 42 - displayWidth - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

func run() error {
	cfgPath := os.Getenv("TMSRV_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/server.toml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name, cfg.Server.ID)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 1. Database
	printSection("資料庫")
	db, err := persist.NewDB(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer db.Pool.Close()
	if err := persist.RunMigrations(ctx, db.Pool); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	printOK("連線已建立並完成遷移")
	fmt.Println()

	// 2. Repositories
	accountRepo := persist.NewAccountRepo(db)
	charRepo := persist.NewCharacterRepo(db)
	itemRepo := persist.NewItemRepo(db)
	guildRepo := persist.NewGuildRepo(db)
	questRepo := persist.NewQuestRepo(db)
	auctionRepo := persist.NewAuctionRepo(db)
	banRepo := persist.NewBanRepo(db)
	auditRepo := persist.NewAuditRepo(db)
	walRepo := persist.NewWALRepo(db)
	autosave := persist.NewAutosaveBatch(charRepo, 8)

	// 3. Security monitor and world state
	auditLog := security.NewLog()
	secMonitor := security.NewMonitor(security.DefaultRules(), auditLog, log)
	worldState := world.NewState(secMonitor, auditLog)

	// 4. Load content tables
	printSection("內容資料")
	itemTable, err := data.LoadItemTable("data/yaml/item_list.yaml")
	if err != nil {
		return fmt.Errorf("load items: %w", err)
	}
	printStat("物品", itemTable.Count())

	mobTable, err := data.LoadMobTable("data/yaml/mob_list.yaml")
	if err != nil {
		return fmt.Errorf("load mobs: %w", err)
	}
	printStat("怪物", mobTable.Count())

	npcTable, err := data.LoadNpcTable("data/yaml/npc_list.yaml")
	if err != nil {
		return fmt.Errorf("load npcs: %w", err)
	}
	printStat("NPC", npcTable.Count())

	skillTable, err := data.LoadSkillTable("data/yaml/skill_list.yaml")
	if err != nil {
		return fmt.Errorf("load skills: %w", err)
	}
	printStat("技能", skillTable.Count())

	armorSetTable, err := data.LoadArmorSetTable("data/yaml/armor_set_list.yaml")
	if err != nil {
		return fmt.Errorf("load armor sets: %w", err)
	}

	mapDataTable, err := data.LoadMapData("data/yaml/map_list.yaml", "map")
	if err != nil {
		return fmt.Errorf("load maps: %w", err)
	}
	printStat("地圖", mapDataTable.Count())

	shopTable, err := data.LoadShopTable("data/yaml/shop_list.yaml")
	if err != nil {
		return fmt.Errorf("load shops: %w", err)
	}

	dropTable, err := data.LoadDropTable("data/yaml/drop_list.yaml")
	if err != nil {
		return fmt.Errorf("load drop table: %w", err)
	}

	mobSkillTable, err := data.LoadMobSkillTable("data/yaml/mob_skill_list.yaml")
	if err != nil {
		return fmt.Errorf("load mob skills: %w", err)
	}

	portalTable, err := data.LoadPortalTable("data/yaml/portal_list.yaml")
	if err != nil {
		return fmt.Errorf("load portals: %w", err)
	}

	questTable, err := data.LoadQuestTable("data/yaml/quest_list.yaml")
	if err != nil {
		return fmt.Errorf("load quests: %w", err)
	}
	printStat("任務", questTable.Count())

	spawnList, err := data.LoadSpawnList("data/yaml/spawn_list.yaml")
	if err != nil {
		return fmt.Errorf("load spawn list: %w", err)
	}
	spawned := spawnMobs(worldState, mobTable, spawnList, log)
	printStat("已生成怪物", spawned)

	openAuctions, err := auctionRepo.LoadOpen(ctx)
	if err != nil {
		return fmt.Errorf("load open auctions: %w", err)
	}
	restoreAuctions(worldState, openAuctions, cfg)
	printStat("拍賣中項目", len(openAuctions))
	fmt.Println()

	// 5. Lua scripting engine (combat formula / quest-reward overrides)
	luaEngine, err := scripting.NewEngine("scripts", log)
	if err != nil {
		return fmt.Errorf("init lua engine: %w", err)
	}

	// 6. Packet handler registry and dependency bundle
	pktReg := packet.NewRegistry(log)
	deps := &handler.Deps{
		World: worldState,
		Content: handler.Content{
			Items:     itemTable,
			Mobs:      mobTable,
			Npcs:      npcTable,
			Skills:    skillTable,
			ArmorSets: armorSetTable,
			Maps:      mapDataTable,
			Shops:     shopTable,
			Drops:     dropTable,
			MobSkills: mobSkillTable,
			Portals:   portalTable,
			Quests:    questTable,
		},
		Repos: handler.Repos{
			Accounts:   accountRepo,
			Characters: charRepo,
			Items:      itemRepo,
			Guilds:     guildRepo,
			Quests:     questRepo,
			Auctions:   auctionRepo,
			Bans:       banRepo,
			Audit:      auditRepo,
			Autosave:   autosave,
		},
		Formula: model.NewDefaultCombatFormula(),
		Scripts: luaEngine,
		Config:  cfg,
		Log:     log,
		Now:     func() int64 { return time.Now().UnixMilli() },
	}
	handler.RegisterAll(pktReg, deps)

	// 7. Network server and session table
	pktPerSec := 0
	if cfg.RateLimit.Enabled {
		pktPerSec = cfg.RateLimit.PacketsPerSecond
	}
	netServer, err := netio.NewServer(
		cfg.Network.BindAddress,
		cfg.Network.InQueueSize,
		cfg.Network.OutQueueSize,
		pktPerSec,
		log,
	)
	if err != nil {
		return fmt.Errorf("net server: %w", err)
	}
	sessTable := netio.NewSessionTable()
	deps.Sessions = sessTable
	go netServer.AcceptLoop()

	var lastTickMs int64
	var adminSrv *adminhttp.Server
	if cfg.Admin.Enabled {
		startedAt := time.Now()
		adminSrv = adminhttp.NewServer(cfg.Admin.BindAddress, func() adminhttp.Snapshot {
			return adminhttp.Snapshot{
				UptimeSeconds:    int64(time.Since(startedAt).Seconds()),
				OnlineCharacters: len(worldState.AllCharacters()),
				LiveMobs:         len(worldState.AllMobs()),
				TickQueueDepth:   sessTable.Len(),
				LastTickMs:       lastTickMs,
				ActiveGuildWars:  worldState.Guilds.ActiveWarCount(),
			}
		}, log)
		go func() {
			if err := adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("管理介面已停止", zap.Error(err))
			}
		}()
	}

	// 8. Tick systems, in Phase order (§4.2)
	runner := coresys.NewRunner()
	runner.Register(system.NewInputSystem(netServer, sessTable, pktReg, deps, cfg.Network.MaxPacketsPerTick, log))
	runner.Register(system.NewAISystem(worldState, deps, nil))
	runner.Register(system.NewEffectSystem(worldState))
	runner.Register(system.NewRegenSystem(worldState))
	runner.Register(system.NewEventSystem(worldState, deps, log))
	runner.Register(system.NewMarketSystem(deps))
	runner.Register(system.NewFriendSystem(deps))
	runner.Register(system.NewPersistenceSystem(deps, 150)) // ~30s at a 200ms tick rate
	runner.Register(system.NewCleanupSystem(worldState, deps))

	if err := walRepo.WriteWAL(ctx, nil); err != nil {
		log.Warn("WAL 初始檢查失敗", zap.Error(err))
	}

	// 9. Start game loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Network.TickRate)
	defer ticker.Stop()

	printSection("伺服器就緒")
	printReady(fmt.Sprintf("監聽位址 %s", netServer.Addr().String()))
	printReady(fmt.Sprintf("遊戲迴圈啟動 (tick: %s)", cfg.Network.TickRate))
	fmt.Println()

	for {
		select {
		case <-ticker.C:
			runner.Tick(cfg.Network.TickRate)
			lastTickMs = time.Now().UnixMilli()
		case sig := <-shutdownCh:
			log.Info("收到關閉信號", zap.String("signal", sig.String()))
			deps.AutosaveAll()
			if adminSrv != nil {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				_ = adminSrv.Shutdown(shutdownCtx)
				shutdownCancel()
			}
			log.Info("伺服器已停止")
			return nil
		}
	}
}

// spawnMobs creates live mob instances from the spawn list and inserts
// them into the world's spatial index (§4.10). Mob ids are assigned
// from a fresh counter each boot; unlike characters, mobs are not
// persisted between restarts.
func spawnMobs(ws *world.State, mobs *data.MobTable, spawns []data.SpawnEntry, log *zap.Logger) int {
	total := 0
	var nextID int32 = 1
	for _, spawn := range spawns {
		tmpl := mobs.Get(spawn.MobID)
		if tmpl == nil {
			log.Warn("生成: 未知的怪物 ID", zap.Int32("mob_id", spawn.MobID))
			continue
		}
		for i := 0; i < spawn.Count; i++ {
			x := spawn.X
			y := spawn.Y
			if spawn.RandomX > 0 {
				x += int32(rand.Intn(int(spawn.RandomX*2+1))) - spawn.RandomX
			}
			if spawn.RandomY > 0 {
				y += int32(rand.Intn(int(spawn.RandomY*2+1))) - spawn.RandomY
			}
			pos := ai.Position{X: x, Y: y, MapID: int32(spawn.MapID)}
			m := &world.Mob{}
			m.Mob = *ai.NewMob(nextID, tmpl.MobID, pos, tmpl.LeashRadius, tmpl.AggroRadius, tmpl.HP)
			m.Mob.FleeHPPct = tmpl.FleeHPPct
			m.Mob.HealHPPct = tmpl.HealHPPct
			m.Mob.IsAggro = tmpl.Aggressive
			nextID++
			ws.SpawnMob(m)
			total++
		}
	}
	return total
}

// restoreAuctions repopulates the in-memory market from persisted open
// auctions on boot (§4.7). Anti-snipe parameters aren't persisted per
// auction — a restored auction uses the server's current config values
// rather than whatever was in force when it was created, same tradeoff
// the teacher's content-table reloads make for any config that changed
// between restarts.
func restoreAuctions(ws *world.State, rows []persist.AuctionRow, cfg *config.Config) {
	for _, row := range rows {
		a := &model.Auction{
			ID:           row.ID,
			SellerID:     row.SellerID,
			Item:         model.Item{ItemID: row.ItemID, Effects: row.ItemEffects, Value: row.ItemValue},
			Kind:         model.AuctionKind(row.Kind),
			StartPrice:   row.StartPrice,
			ReservePrice: row.ReservePrice,
			BuyoutPrice:  row.BuyoutPrice,
			MinIncrement: row.MinIncrement,
			StartTime:    row.StartTime,
			EndTime:      row.EndTime,
			SnipeWindow:  int64(cfg.Economy.AntiSnipeWindow.Seconds()),
			SnipeExtend:  int64(cfg.Economy.AntiSnipeExtend.Seconds()),
			ExtendCap:    int64(cfg.Economy.AntiSnipeExtendCap.Seconds()),
			Fee:          model.FeeSchedule{BaseRate: cfg.Economy.AuctionHouseFeePct},
		}
		if row.CurrentBidder != 0 {
			a.CurrentBid = &model.Bid{BidderID: row.CurrentBidder, Amount: row.CurrentBid}
		}
		ws.Market.CreateAuction(a)
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
