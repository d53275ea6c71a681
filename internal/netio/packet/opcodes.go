package packet

// Opcode is the packet Type field carried in the wire header (§4.1). Values
// are grouped by session-state lifecycle stage in which they first become
// legal, matching the order §6 lists them in.
type Opcode = uint16

const (
	OpHandshake Opcode = iota + 1
	OpAccountLogin
	OpCharacterList
	OpCharacterCreate
	OpCharacterDelete
	OpCharacterLogin
	OpCharacterLogout
	OpKeepAlive

	OpMove
	OpAttack
	OpSkillUse

	OpItemDrop
	OpItemGet
	OpItemEquip
	OpItemUse

	OpChat

	OpNpcTalk

	OpPartyInvite
	OpPartyAccept
	OpPartyLeave
	OpPartyKick

	OpGuildCreate
	OpGuildInvite
	OpGuildJoin
	OpGuildKick
	OpGuildNotice
	OpGuildWarDeclare

	OpFriendList
	OpFriendAdd
	OpFriendRemove
	OpFriendBlock
	OpFriendUnblock

	OpTradeStart
	OpTradeSetItem
	OpTradeSetGold
	OpTradeAccept
	OpTradeClose

	OpShopOpen
	OpShopBuy
	OpShopClose

	OpMarketList
	OpMarketSell
	OpMarketBuy
	OpMarketCancel

	OpAuctionList
	OpAuctionCreate
	OpAuctionBid
	OpAuctionCancel

	OpStorageOpen
	OpStoragePut
	OpStorageGet
	OpStorageGold
	OpStorageClose

	OpQuestHistory
	OpQuestUpdate
	OpQuestAccept
	OpQuestComplete

	// OpRekeyAck is sent by the client to confirm it has switched to a
	// newly staged cipher key/IV pair (§4.1 rotation). Not part of the
	// spec's client-facing packet list; internal to the crypto handshake.
	OpRekeyAck

	// The opcodes above are client-origin and registered in the
	// Registry's dispatch table. Everything below is server-origin: sent
	// with Session.Send but never dispatched, so they share the same
	// wire-opcode space without colliding with a registered handler.
	OpLoginResult
	OpCharacterListResult
	OpEnterWorld
	OpDisconnect

	OpEntityMove
	OpEntitySpawn
	OpEntityDespawn
	OpCombatResult
	OpStatUpdate
	OpDeath

	OpItemUpdate
	OpGoldUpdate

	OpChatRelay
	OpSystemMessage

	OpPartyUpdate
	OpGuildUpdate

	OpTradeUpdate
	OpShopResult
	OpStorageResult
	OpQuestUpdateResult

	OpMarketResult
	OpAuctionResult

	OpFriendUpdate
	OpFriendNotice
)
