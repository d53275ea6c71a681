package handler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/wydtm/tmsrv/internal/model"
	"github.com/wydtm/tmsrv/internal/netio"
	"github.com/wydtm/tmsrv/internal/netio/packet"
	"github.com/wydtm/tmsrv/internal/persist"
	"github.com/wydtm/tmsrv/internal/security"
	"github.com/wydtm/tmsrv/internal/world"
)

// toTime converts the Deps.Now() epoch-millisecond clock into a
// time.Time for the security package's window-based APIs.
func toTime(nowMs int64) time.Time {
	return time.UnixMilli(nowMs)
}

// HandleAccountLogin validates credentials against AccountRepo and moves
// the session from Handshake to Authenticated (§4.1, §4.3 account gate).
// AutoCreateAccounts (config) lets a first-seen name/password pair
// register itself, matching the original client's implicit-registration
// flow.
func (d *Deps) HandleAccountLogin(sess any, r *packet.Reader) {
	s := d.currentFor(sess)
	if s == nil {
		return
	}
	name := r.ReadS()
	password := r.ReadS()
	ctx := context.Background()

	row, err := d.Repos.Accounts.Load(ctx, name)
	if err != nil {
		d.Log.Error("帳號查詢失敗", zap.Error(err))
		d.failLogin(s, "login failed")
		return
	}
	if row == nil {
		if !d.Config.Character.AutoCreateAccounts {
			d.failLogin(s, "unknown account")
			return
		}
		row, err = d.Repos.Accounts.Create(ctx, name, password, s.IP, s.IP)
		if err != nil {
			d.Log.Error("帳號建立失敗", zap.Error(err))
			d.failLogin(s, "account creation failed")
			return
		}
	} else if !d.Repos.Accounts.ValidatePassword(row.PasswordHash, password) {
		d.World.Security.Record(toTime(d.Now()), 0, security.ViolationLoginBruteForce, name)
		d.failLogin(s, "bad credentials")
		return
	}
	if row.Banned {
		d.failLogin(s, "account banned")
		return
	}

	if ban := d.World.Security.CheckBan(toTime(d.Now()), 0, 0, s.IP); ban != nil {
		d.failLogin(s, "banned")
		return
	}

	s.AccountName = row.Name
	s.SetState(packet.StateAuthenticated)
	_ = d.Repos.Accounts.UpdateLastActive(ctx, row.Name, s.IP)
	_ = d.Repos.Accounts.SetOnline(ctx, row.Name, true)

	w := packet.NewWriter()
	w.WriteC(1) // success
	w.WriteH(uint16(row.AccessLevel))
	s.Send(packet.OpLoginResult, w.Bytes())
}

func (d *Deps) failLogin(s *netio.Session, reason string) {
	w := packet.NewWriter()
	w.WriteC(0)
	w.WriteS(reason)
	s.Send(packet.OpLoginResult, w.Bytes())
}

// HandleCharacterList loads every non-deleted character on the account
// and replies with the roster, then advances Authenticated -> CharSelect
// (§4.3 lifecycle).
func (d *Deps) HandleCharacterList(sess any, r *packet.Reader) {
	s := d.currentFor(sess)
	if s == nil {
		return
	}
	ctx := context.Background()
	if _, err := d.Repos.Characters.CleanExpiredDeletions(ctx, s.AccountName); err != nil {
		d.Log.Warn("清除過期刪除角色失敗", zap.Error(err))
	}
	rows, err := d.Repos.Characters.LoadByAccount(ctx, s.AccountName)
	if err != nil {
		d.Log.Error("角色列表查詢失敗", zap.Error(err))
		return
	}

	w := packet.NewWriter()
	w.WriteC(byte(len(rows)))
	for _, c := range rows {
		w.WriteS(c.Name)
		w.WriteH(uint16(c.Level))
		w.WriteD(int32(c.Gold))
	}
	s.Send(packet.OpCharacterListResult, w.Bytes())
	s.SetState(packet.StateCharSelect)
}

// HandleCharacterCreate validates the requested name against the
// character-slot cap and uniqueness constraint, then inserts a fresh row
// with starting stats (§4.3).
func (d *Deps) HandleCharacterCreate(sess any, r *packet.Reader) {
	s := d.currentFor(sess)
	if s == nil {
		return
	}
	name := r.ReadS()
	str := int16(r.ReadC())
	dex := int16(r.ReadC())
	con := int16(r.ReadC())
	wis := int16(r.ReadC())
	cha := int16(r.ReadC())
	intel := int16(r.ReadC())

	ctx := context.Background()
	count, err := d.Repos.Characters.CountByAccount(ctx, s.AccountName)
	if err != nil {
		d.Log.Error("角色數量查詢失敗", zap.Error(err))
		return
	}
	if count >= d.Config.Character.DefaultSlots {
		d.replyCreate(s, false)
		return
	}
	exists, err := d.Repos.Characters.NameExists(ctx, name)
	if err != nil {
		d.Log.Error("角色名稱查詢失敗", zap.Error(err))
		return
	}
	if exists {
		d.replyCreate(s, false)
		return
	}

	row := &persist.CharacterRow{
		AccountName: s.AccountName, Name: name,
		Level: 1, HP: 100, MP: 50, MaxHP: 100, MaxMP: 50,
		Str: str, Dex: dex, Con: con, Wis: wis, Cha: cha, Intel: intel,
		MapID: 1,
	}
	if err := d.Repos.Characters.Create(ctx, row); err != nil {
		d.Log.Error("角色建立失敗", zap.Error(err))
		d.replyCreate(s, false)
		return
	}
	d.replyCreate(s, true)
}

func (d *Deps) replyCreate(s *netio.Session, ok bool) {
	w := packet.NewWriter()
	w.WriteC(boolByte(ok))
	s.Send(packet.OpCharacterListResult, w.Bytes())
}

// HandleCharacterDelete soft-deletes a character, honoring the
// configured grace period and minimum-level guard against griefing
// someone else's (already logged-out) high-value character deletion.
func (d *Deps) HandleCharacterDelete(sess any, r *packet.Reader) {
	s := d.currentFor(sess)
	if s == nil {
		return
	}
	name := r.ReadS()
	ctx := context.Background()

	row, err := d.Repos.Characters.LoadByName(ctx, name)
	if err != nil || row == nil || row.AccountName != s.AccountName {
		return
	}
	if int(row.Level) < d.Config.Character.DeleteMinLevel {
		_ = d.Repos.Characters.HardDelete(ctx, name)
		return
	}
	_ = d.Repos.Characters.SoftDelete(ctx, name, d.Config.Character.DeleteGraceDays)
}

// HandleCharacterLogin loads the full character row plus containers and
// enters it into the live world, completing the Connecting -> Loading ->
// InWorld lifecycle transition (§4.3).
func (d *Deps) HandleCharacterLogin(sess any, r *packet.Reader) {
	s := d.currentFor(sess)
	if s == nil {
		return
	}
	name := r.ReadS()
	ctx := context.Background()

	row, err := d.Repos.Characters.LoadByName(ctx, name)
	if err != nil || row == nil || row.AccountName != s.AccountName {
		d.Log.Warn("角色登入查無資料", zap.String("name", name))
		return
	}

	c := world.NewCharacter(row.ID, 0, row.Name)
	c.Lifecycle = world.LifecycleLoading
	c.Pos = world.Position{X: row.X, Y: row.Y, MapID: int32(row.MapID)}
	c.Heading = row.Heading
	c.Level = int(row.Level)
	c.Exp = row.Exp
	c.Alignment = row.Alignment
	c.HP, c.MaxHP = row.HP, row.MaxHP
	c.MP, c.MaxMP = row.MP, row.MaxMP
	c.Stats = model.CombatantStats{Level: int(row.Level), STR: int(row.Str), DEX: int(row.Dex), CON: int(row.Con)}
	c.Gold = row.Gold
	c.BankGold = row.BankGold
	c.GuildID = row.GuildID

	itemRows, err := d.Repos.Items.LoadByCharID(ctx, row.ID)
	if err != nil {
		d.Log.Error("物品載入失敗", zap.Error(err))
	}
	d.restoreContainers(c, itemRows)

	s.CharName = c.Name
	d.World.EnterWorld(c, s.ID)
	s.SetState(packet.StateInWorld)

	w := packet.NewWriter()
	w.WriteD(c.Pos.X)
	w.WriteD(c.Pos.Y)
	w.WriteH(uint16(c.Pos.MapID))
	s.Send(packet.OpEnterWorld, w.Bytes())

	d.broadcastSpawn(c)
	d.World.Friends.QueueNotice(c.ID, true)
}

// HandleCharacterLogout saves and removes a character from the live
// world without closing the session, returning it to CharSelect so the
// player can pick another character (§4.3).
func (d *Deps) HandleCharacterLogout(sess any, r *packet.Reader) {
	s := d.currentFor(sess)
	if s == nil {
		return
	}
	c := d.World.CharacterBySession(s.ID)
	if c == nil {
		return
	}
	d.saveAndLeave(c)
	s.SetState(packet.StateCharSelect)
}

// HandleDisconnect saves and removes whatever character, if any, was
// logged into sessionID, called by the input system once a session's
// read/write loops have torn down (§4.3 abrupt-disconnect path).
func (d *Deps) HandleDisconnect(sessionID uint64) {
	c := d.World.CharacterBySession(sessionID)
	if c == nil {
		return
	}
	d.saveAndLeave(c)
}

// HandleKeepAlive is a no-op liveness ping; TokenBucket rate limiting and
// the read-loop's io deadline already cover dead-connection detection,
// this just resets the client's own idle timer.
func (d *Deps) HandleKeepAlive(sess any, r *packet.Reader) {}

// characterRow builds the persist-layer row for a live character's
// current mutable state.
func characterRow(c *world.Character) *persist.CharacterRow {
	return &persist.CharacterRow{
		Name: c.Name, Level: int16(c.Level), Exp: c.Exp, Alignment: c.Alignment,
		HP: c.HP, MP: c.MP, MaxHP: c.MaxHP, MaxMP: c.MaxMP,
		X: c.Pos.X, Y: c.Pos.Y, MapID: int16(c.Pos.MapID), Heading: c.Heading,
		Str: int16(c.Stats.STR), Dex: int16(c.Stats.DEX), Con: int16(c.Stats.CON),
		Gold: c.Gold, BankGold: c.BankGold, GuildID: c.GuildID,
	}
}

func (d *Deps) saveContainers(c *world.Character) {
	ctx := context.Background()
	for _, kind := range []struct {
		k model.ContainerKind
		c *model.Container
	}{
		{model.ContainerInventory, c.Inventory},
		{model.ContainerEquipment, c.Equipment},
		{model.ContainerBank, c.Bank},
	} {
		if err := d.Repos.Items.SaveContainer(ctx, c.ID, kind.k, kind.c); err != nil {
			d.Log.Error("容器儲存失敗", zap.Error(err), zap.String("kind", kind.k.String()))
		}
	}
}

// persistCharacter flushes a single live character's mutable row and
// containers to storage without removing it from the world, used by
// both saveAndLeave and single-character save paths.
func (d *Deps) persistCharacter(c *world.Character) {
	ctx := context.Background()
	if err := d.Repos.Characters.SaveCharacter(ctx, characterRow(c)); err != nil {
		d.Log.Error("角色儲存失敗", zap.Error(err))
	}
	d.saveContainers(c)
}

// AutosaveAll persists every in-world character, called on the
// persistence system's configured interval rather than only at logout.
// Character rows flush through Repos.Autosave's bounded-concurrency
// batch; container saves still go one at a time per character since
// AutosaveBatch only fans out the row write.
func (d *Deps) AutosaveAll() {
	chars := d.World.AllCharacters()
	rows := make([]*persist.CharacterRow, len(chars))
	for i, c := range chars {
		rows[i] = characterRow(c)
	}
	ctx := context.Background()
	if err := d.Repos.Autosave.Run(ctx, rows); err != nil {
		d.Log.Error("批次自動存檔失敗", zap.Error(err))
	}
	for _, c := range chars {
		d.saveContainers(c)
	}
}

// saveAndLeave persists a character's mutable state and removes it from
// the live world, used by both logout and disconnect.
func (d *Deps) saveAndLeave(c *world.Character) {
	c.Lifecycle = world.LifecycleSaving
	d.persistCharacter(c)
	d.World.LeaveWorld(c.ID)
	d.World.Friends.QueueNotice(c.ID, false)
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// restoreContainers replays persisted item rows into a freshly-loaded
// character's in-memory containers by slot, choosing the target
// container from the persisted model.ContainerKind.
func (d *Deps) restoreContainers(c *world.Character, rows []persist.ItemRow) {
	for _, row := range rows {
		it := model.Item{ItemID: row.ItemID, Effects: row.Effects, Value: row.Value}
		var container *model.Container
		switch model.ContainerKind(row.Container) {
		case model.ContainerInventory:
			container = c.Inventory
		case model.ContainerEquipment:
			container = c.Equipment
		case model.ContainerBank:
			container = c.Bank
		default:
			continue
		}
		_ = container.Put(int(row.Slot), it)
	}
}

// broadcastSpawn announces a newly-entered character's presence to every
// character already in its area of interest, and announces them back to
// the newcomer (§4.2 AoI enter/leave events).
func (d *Deps) broadcastSpawn(c *world.Character) {
	const aoiRadius = 20
	nearby := d.World.NearbyCharacters(c.Pos, aoiRadius)
	for _, other := range nearby {
		if other.ID == c.ID {
			continue
		}
		d.sendTo(other, packet.OpEntitySpawn, spawnPayload(c))
		d.sendTo(c, packet.OpEntitySpawn, spawnPayload(other))
	}
}

// spawnPayload builds the wire shape every OpEntitySpawn notification
// shares regardless of direction.
func spawnPayload(c *world.Character) *packet.Writer {
	w := packet.NewWriter()
	w.WriteD(c.ID)
	w.WriteS(c.Name)
	w.WriteD(c.Pos.X)
	w.WriteD(c.Pos.Y)
	w.WriteH(uint16(c.Level))
	return w
}
