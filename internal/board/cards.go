package board

import (
	"github.com/wfunc/tycoon-game/internal/models"
)

// 两副牌堆的目录种子数据。
// per_player的金额约定：正数为向每位其他玩家收取，负数为向每位其他玩家支付。

func intp(v int) *int { return &v }

var chanceDeck = []models.Card{
	{ID: 1, Sort: 1, Text: "Advance to GO. Collect $200.", EffectType: models.CardEffectMove, MoveTo: intp(0)},
	{ID: 2, Sort: 2, Text: "Advance to Illinois Avenue.", EffectType: models.CardEffectMove, MoveTo: intp(24)},
	{ID: 3, Sort: 3, Text: "Advance to St. Charles Place.", EffectType: models.CardEffectMove, MoveTo: intp(11)},
	{ID: 4, Sort: 4, Text: "Advance to the nearest Utility. Pay 10 times the dice roll.", EffectType: models.CardEffectSpecial, Extra: models.CardExtra{Kind: models.CardRuleNearestUtility, RentMultiplier: 10}},
	{ID: 5, Sort: 5, Text: "Advance to the nearest Railroad. Pay double rent.", EffectType: models.CardEffectSpecial, Extra: models.CardExtra{Kind: models.CardRuleNearestRailroad, RentMultiplier: 2}},
	{ID: 6, Sort: 6, Text: "Bank pays you dividend of $50.", EffectType: models.CardEffectCredit, Amount: 50},
	{ID: 7, Sort: 7, Text: "Get Out of Jail Free.", EffectType: models.CardEffectSpecial, Extra: models.CardExtra{Kind: models.CardRuleJailFree}},
	{ID: 8, Sort: 8, Text: "Go Back Three Spaces.", EffectType: models.CardEffectMove, MoveBy: intp(-3)},
	{ID: 9, Sort: 9, Text: "Go to Jail. Do not pass GO.", EffectType: models.CardEffectSpecial, Extra: models.CardExtra{Kind: models.CardRuleGoToJail}},
	{ID: 10, Sort: 10, Text: "Make general repairs: $25 per house, $100 per hotel.", EffectType: models.CardEffectSpecial, Extra: models.CardExtra{Kind: models.CardRulePerHouse, PerHouse: 25, PerHotel: 100}},
	{ID: 11, Sort: 11, Text: "Pay poor tax of $15.", EffectType: models.CardEffectDebit, Amount: 15},
	{ID: 12, Sort: 12, Text: "Take a trip to Reading Railroad.", EffectType: models.CardEffectMove, MoveTo: intp(5)},
	{ID: 13, Sort: 13, Text: "Take a walk on the Boardwalk.", EffectType: models.CardEffectMove, MoveTo: intp(39)},
	{ID: 14, Sort: 14, Text: "You have been elected Chairman of the Board. Pay each player $50.", EffectType: models.CardEffectSpecial, Extra: models.CardExtra{Kind: models.CardRulePerPlayer, PerPlayer: -50}},
	{ID: 15, Sort: 15, Text: "Your building loan matures. Collect $150.", EffectType: models.CardEffectCredit, Amount: 150},
	{ID: 16, Sort: 16, Text: "You have won a crossword competition. Collect $100.", EffectType: models.CardEffectCredit, Amount: 100},
}

var chestDeck = []models.Card{
	{ID: 1, Sort: 1, Text: "Advance to GO. Collect $200.", EffectType: models.CardEffectMove, MoveTo: intp(0)},
	{ID: 2, Sort: 2, Text: "Bank error in your favor. Collect $200.", EffectType: models.CardEffectCredit, Amount: 200},
	{ID: 3, Sort: 3, Text: "Doctor's fees. Pay $50.", EffectType: models.CardEffectDebit, Amount: 50},
	{ID: 4, Sort: 4, Text: "From sale of stock you get $50.", EffectType: models.CardEffectCredit, Amount: 50},
	{ID: 5, Sort: 5, Text: "Get Out of Jail Free.", EffectType: models.CardEffectSpecial, Extra: models.CardExtra{Kind: models.CardRuleJailFree}},
	{ID: 6, Sort: 6, Text: "Go to Jail. Do not pass GO.", EffectType: models.CardEffectSpecial, Extra: models.CardExtra{Kind: models.CardRuleGoToJail}},
	{ID: 7, Sort: 7, Text: "Grand Opera Night. Collect $50 from every player.", EffectType: models.CardEffectSpecial, Extra: models.CardExtra{Kind: models.CardRulePerPlayer, PerPlayer: 50}},
	{ID: 8, Sort: 8, Text: "Holiday fund matures. Receive $100.", EffectType: models.CardEffectCredit, Amount: 100},
	{ID: 9, Sort: 9, Text: "Income tax refund. Collect $20.", EffectType: models.CardEffectCredit, Amount: 20},
	{ID: 10, Sort: 10, Text: "It is your birthday. Collect $10 from every player.", EffectType: models.CardEffectSpecial, Extra: models.CardExtra{Kind: models.CardRulePerPlayer, PerPlayer: 10}},
	{ID: 11, Sort: 11, Text: "Life insurance matures. Collect $100.", EffectType: models.CardEffectCredit, Amount: 100},
	{ID: 12, Sort: 12, Text: "Pay hospital fees of $100.", EffectType: models.CardEffectDebit, Amount: 100},
	{ID: 13, Sort: 13, Text: "Pay school fees of $50.", EffectType: models.CardEffectDebit, Amount: 50},
	{ID: 14, Sort: 14, Text: "Receive $25 consultancy fee.", EffectType: models.CardEffectCredit, Amount: 25},
	{ID: 15, Sort: 15, Text: "Street repairs: $40 per house, $115 per hotel.", EffectType: models.CardEffectSpecial, Extra: models.CardExtra{Kind: models.CardRulePerHouse, PerHouse: 40, PerHotel: 115}},
	{ID: 16, Sort: 16, Text: "You have won second prize in a beauty contest. Collect $10.", EffectType: models.CardEffectCredit, Amount: 10},
}

// ChanceDeck 返回机会牌堆种子数据
func ChanceDeck() []models.ChanceCard {
	out := make([]models.ChanceCard, len(chanceDeck))
	for i, c := range chanceDeck {
		out[i] = models.ChanceCard{Card: c}
	}
	return out
}

// ChestDeck 返回公益金牌堆种子数据
func ChestDeck() []models.CommunityChestCard {
	out := make([]models.CommunityChestCard, len(chestDeck))
	for i, c := range chestDeck {
		out[i] = models.CommunityChestCard{Card: c}
	}
	return out
}
