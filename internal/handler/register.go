package handler

import "github.com/wydtm/tmsrv/internal/netio/packet"

var (
	authOnly     = []packet.SessionState{packet.StateAuthenticated}
	charSelect   = []packet.SessionState{packet.StateCharSelect}
	inWorld      = []packet.SessionState{packet.StateInWorld}
	anyLoggedIn  = []packet.SessionState{packet.StateAuthenticated, packet.StateCharSelect, packet.StateInWorld}
)

func sz(min int) packet.SizeSpec        { return packet.SizeSpec{Min: min} }
func szRange(min, max int) packet.SizeSpec { return packet.SizeSpec{Min: min, Max: max} }

// RegisterAll wires every opcode this build understands into reg's
// dispatch table, gating each on the session states §4.1 step 4 allows
// it in and the payload size range its wire format produces.
func RegisterAll(reg *packet.Registry, d *Deps) {
	reg.Register(packet.OpAccountLogin, []packet.SessionState{packet.StateHandshake}, szRange(2, 512), d.HandleAccountLogin)
	reg.Register(packet.OpCharacterList, authOnly, sz(0), d.HandleCharacterList)
	reg.Register(packet.OpCharacterCreate, authOnly, szRange(4, 256), d.HandleCharacterCreate)
	reg.Register(packet.OpCharacterDelete, []packet.SessionState{packet.StateAuthenticated, packet.StateCharSelect}, szRange(1, 64), d.HandleCharacterDelete)
	reg.Register(packet.OpCharacterLogin, charSelect, szRange(1, 64), d.HandleCharacterLogin)
	reg.Register(packet.OpCharacterLogout, inWorld, sz(0), d.HandleCharacterLogout)
	reg.Register(packet.OpKeepAlive, anyLoggedIn, sz(0), d.HandleKeepAlive)

	reg.Register(packet.OpMove, inWorld, sz(13), d.HandleMove)
	reg.Register(packet.OpAttack, inWorld, sz(5), d.HandleAttack)
	reg.Register(packet.OpSkillUse, inWorld, sz(9), d.HandleSkillUse)

	reg.Register(packet.OpItemDrop, inWorld, sz(1), d.HandleItemDrop)
	reg.Register(packet.OpItemGet, inWorld, sz(4), d.HandleItemGet)
	reg.Register(packet.OpItemEquip, inWorld, sz(3), d.HandleItemEquip)
	reg.Register(packet.OpItemUse, inWorld, sz(1), d.HandleItemUse)

	reg.Register(packet.OpChat, inWorld, szRange(1, 1024), d.HandleChat)
	reg.Register(packet.OpNpcTalk, inWorld, sz(4), d.HandleNpcTalk)

	reg.Register(packet.OpPartyInvite, inWorld, sz(4), d.HandlePartyInvite)
	reg.Register(packet.OpPartyAccept, inWorld, sz(0), d.HandlePartyAccept)
	reg.Register(packet.OpPartyLeave, inWorld, sz(0), d.HandlePartyLeave)
	reg.Register(packet.OpPartyKick, inWorld, sz(4), d.HandlePartyKick)

	reg.Register(packet.OpGuildCreate, inWorld, szRange(1, 64), d.HandleGuildCreate)
	reg.Register(packet.OpGuildInvite, inWorld, sz(4), d.HandleGuildInvite)
	reg.Register(packet.OpGuildJoin, inWorld, sz(0), d.HandleGuildJoin)
	reg.Register(packet.OpGuildKick, inWorld, sz(4), d.HandleGuildKick)
	reg.Register(packet.OpGuildNotice, inWorld, szRange(1, 256), d.HandleGuildNotice)
	reg.Register(packet.OpGuildWarDeclare, inWorld, sz(4), d.HandleGuildWarDeclare)

	reg.Register(packet.OpFriendList, inWorld, sz(0), d.HandleFriendList)
	reg.Register(packet.OpFriendAdd, inWorld, szRange(1, 64), d.HandleFriendAdd)
	reg.Register(packet.OpFriendRemove, inWorld, sz(4), d.HandleFriendRemove)
	reg.Register(packet.OpFriendBlock, inWorld, sz(4), d.HandleFriendBlock)
	reg.Register(packet.OpFriendUnblock, inWorld, sz(4), d.HandleFriendUnblock)

	reg.Register(packet.OpTradeStart, inWorld, sz(4), d.HandleTradeStart)
	reg.Register(packet.OpTradeSetItem, inWorld, sz(2), d.HandleTradeSetItem)
	reg.Register(packet.OpTradeSetGold, inWorld, sz(4), d.HandleTradeSetGold)
	reg.Register(packet.OpTradeAccept, inWorld, sz(0), d.HandleTradeAccept)
	reg.Register(packet.OpTradeClose, inWorld, sz(0), d.HandleTradeClose)

	reg.Register(packet.OpShopOpen, inWorld, sz(4), d.HandleShopOpen)
	reg.Register(packet.OpShopBuy, inWorld, szRange(7, 4096), d.HandleShopBuy)
	reg.Register(packet.OpShopClose, inWorld, sz(0), d.HandleShopClose)

	reg.Register(packet.OpMarketList, inWorld, sz(0), d.HandleMarketList)
	reg.Register(packet.OpMarketSell, inWorld, sz(9), d.HandleMarketSell)
	reg.Register(packet.OpMarketBuy, inWorld, sz(4), d.HandleMarketBuy)
	reg.Register(packet.OpMarketCancel, inWorld, sz(4), d.HandleMarketCancel)

	reg.Register(packet.OpAuctionList, inWorld, sz(0), d.HandleAuctionList)
	reg.Register(packet.OpAuctionCreate, inWorld, sz(22), d.HandleAuctionCreate)
	reg.Register(packet.OpAuctionBid, inWorld, sz(8), d.HandleAuctionBid)
	reg.Register(packet.OpAuctionCancel, inWorld, sz(4), d.HandleAuctionCancel)

	reg.Register(packet.OpStorageOpen, inWorld, sz(0), d.HandleStorageOpen)
	reg.Register(packet.OpStoragePut, inWorld, sz(2), d.HandleStoragePut)
	reg.Register(packet.OpStorageGet, inWorld, sz(2), d.HandleStorageGet)
	reg.Register(packet.OpStorageGold, inWorld, sz(4), d.HandleStorageGold)
	reg.Register(packet.OpStorageClose, inWorld, sz(0), d.HandleStorageClose)

	reg.Register(packet.OpQuestHistory, inWorld, sz(0), d.HandleQuestHistory)
	reg.Register(packet.OpQuestUpdate, inWorld, sz(4), d.HandleQuestUpdate)
	reg.Register(packet.OpQuestAccept, inWorld, sz(4), d.HandleQuestAccept)
	reg.Register(packet.OpQuestComplete, inWorld, sz(5), d.HandleQuestComplete)
}
