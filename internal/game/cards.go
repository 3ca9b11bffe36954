package game

import (
	"context"

	"github.com/wfunc/tycoon-game/internal/board"
	apperrors "github.com/wfunc/tycoon-game/internal/errors"
	"github.com/wfunc/tycoon-game/internal/models"
	"go.uber.org/zap"
)

// drawAndApply 从指定牌堆抽牌并应用效果
// 发牌策略由配置决定：sequential按牌堆游标顺序循环，random随机。
func (e *Engine) drawAndApply(ctx context.Context, tc *turnContext, player *models.GamePlayer, deck string, diceTotal, depth int) error {
	card, err := e.drawCard(ctx, tc, deck)
	if err != nil {
		return err
	}

	e.log.Debug("抽到卡牌",
		zap.Uint("game_id", tc.game.ID),
		zap.Uint("player_id", player.ID),
		zap.String("deck", deck),
		zap.String("text", card.Text),
	)
	return e.applyCard(ctx, tc, player, deck, card, diceTotal, depth)
}

// drawCard 按策略选择下一张卡牌
func (e *Engine) drawCard(ctx context.Context, tc *turnContext, deck string) (*models.Card, error) {
	var deckSize int64
	db := tc.tx.GetDB()

	table := models.ChanceCard{}.TableName()
	if deck == models.DeckChest {
		table = models.CommunityChestCard{}.TableName()
	}
	if err := db.Table(table).Count(&deckSize).Error; err != nil {
		return nil, err
	}
	if deckSize == 0 {
		return nil, apperrors.Newf(apperrors.ErrInvariantViolation, "%s牌堆为空", deck)
	}

	var sort int
	if e.rules.CardDrawPolicy == "random" {
		sort = e.randIntn(int(deckSize)) + 1
	} else {
		cursor, err := tc.tx.Game().AdvanceDeckCursor(ctx, tc.game.ID, deck, int(deckSize))
		if err != nil {
			return nil, err
		}
		sort = cursor + 1 // sort从1开始
	}

	var card models.Card
	if err := db.Table(table).Where("sort = ?", sort).First(&card).Error; err != nil {
		return nil, err
	}
	return &card, nil
}

// applyCard 应用卡牌的类型化效果
// 引发移动的卡牌会递归进入落地分发，与掷骰移动走同一条路径。
func (e *Engine) applyCard(ctx context.Context, tc *turnContext, player *models.GamePlayer, deck string, card *models.Card, diceTotal, depth int) error {
	tc.record(player.ID, models.HistoryActionCard, player.Position, player.Position, 0,
		map[string]interface{}{"deck": deck, "sort": card.Sort, "text": card.Text})

	switch card.EffectType {
	case models.CardEffectCredit:
		return e.cardCredit(ctx, tc, player, card.Amount, card)

	case models.CardEffectDebit:
		return e.cardDebit(ctx, tc, player, card.Amount, card)

	case models.CardEffectMove:
		return e.cardMove(ctx, tc, player, card, diceTotal, depth)

	case models.CardEffectCreditAndMove:
		if err := e.cardCredit(ctx, tc, player, card.Amount, card); err != nil {
			return err
		}
		return e.cardMove(ctx, tc, player, card, diceTotal, depth)

	case models.CardEffectDebitAndMove:
		if err := e.cardDebit(ctx, tc, player, card.Amount, card); err != nil {
			return err
		}
		return e.cardMove(ctx, tc, player, card, diceTotal, depth)

	case models.CardEffectSpecial:
		return e.applySpecialCard(ctx, tc, player, deck, card, diceTotal, depth)
	}
	return apperrors.Newf(apperrors.ErrInvariantViolation, "未知的卡牌效果类型: %s", card.EffectType)
}

// cardCredit 卡牌入账
func (e *Engine) cardCredit(ctx context.Context, tc *turnContext, player *models.GamePlayer, amount int64, card *models.Card) error {
	if amount <= 0 {
		return nil
	}
	if err := tc.tx.Player().AddBalance(ctx, player.ID, amount); err != nil {
		return err
	}
	player.Balance += amount
	tc.record(player.ID, models.HistoryActionCard, player.Position, player.Position, amount,
		map[string]interface{}{"sort": card.Sort})
	return nil
}

// cardDebit 卡牌扣款，余额不足时挂账（债权方为银行）
func (e *Engine) cardDebit(ctx context.Context, tc *turnContext, player *models.GamePlayer, amount int64, card *models.Card) error {
	if amount <= 0 {
		return nil
	}
	if err := tc.tx.Player().DeductBalance(ctx, player.ID, amount); err != nil {
		if apperrors.GetCode(err) == apperrors.ErrInsufficientFunds {
			if err := tc.tx.Player().SetDebt(ctx, player.ID, amount, nil); err != nil {
				return err
			}
			player.OutstandingDebt = amount
			tc.record(player.ID, models.HistoryActionCard, player.Position, player.Position, 0,
				map[string]interface{}{"sort": card.Sort, "owed": amount, "deferred": true})
			return nil
		}
		return err
	}
	player.Balance -= amount
	tc.record(player.ID, models.HistoryActionCard, player.Position, player.Position, -amount,
		map[string]interface{}{"sort": card.Sort})
	return nil
}

// cardMove 卡牌移动：绝对落位或相对位移，落地后递归分发
// 绝对落位视作前进，经过GO发放奖励；相对后退不发放。
func (e *Engine) cardMove(ctx context.Context, tc *turnContext, player *models.GamePlayer, card *models.Card, diceTotal, depth int) error {
	switch {
	case card.MoveTo != nil:
		target := board.Normalize(*card.MoveTo)
		steps := target - player.Position
		if steps <= 0 {
			steps += models.BoardSize
		}
		if err := e.movePlayer(ctx, tc, player, steps, true); err != nil {
			return err
		}

	case card.MoveBy != nil:
		if err := e.movePlayer(ctx, tc, player, *card.MoveBy, *card.MoveBy > 0); err != nil {
			return err
		}

	default:
		return apperrors.Newf(apperrors.ErrInvariantViolation, "移动卡牌缺少目标: sort=%d", card.Sort)
	}

	_, err := e.dispatchLanding(ctx, tc, player, diceTotal, depth+1)
	return err
}

// applySpecialCard 参数化特殊规则
func (e *Engine) applySpecialCard(ctx context.Context, tc *turnContext, player *models.GamePlayer, deck string, card *models.Card, diceTotal, depth int) error {
	switch card.Extra.Kind {
	case models.CardRuleGoToJail:
		return e.sendToJail(ctx, tc, player)

	case models.CardRuleJailFree:
		if err := tc.tx.Player().SetJailCard(ctx, player.ID, deck, true); err != nil {
			return err
		}
		tc.record(player.ID, models.HistoryActionCard, player.Position, player.Position, 0,
			map[string]interface{}{"sort": card.Sort, "jail_free_card": deck})
		return nil

	case models.CardRulePerHouse:
		return e.cardRepairLevy(ctx, tc, player, card)

	case models.CardRulePerPlayer:
		return e.cardPerPlayer(ctx, tc, player, card)

	case models.CardRuleNearestRailroad:
		target := board.NearestRailroad(player.Position)
		return e.cardAdvanceToNearest(ctx, tc, player, target, card, diceTotal)

	case models.CardRuleNearestUtility:
		target := board.NearestUtility(player.Position)
		return e.cardAdvanceToNearest(ctx, tc, player, target, card, diceTotal)
	}
	return apperrors.Newf(apperrors.ErrInvariantViolation, "未知的特殊卡牌规则: %s", card.Extra.Kind)
}

// cardAdvanceToNearest 前进至最近车站/公用事业
// 卡牌自带租金规则：车站付常规租金的倍数，公用事业按骰点的固定倍数付费。
func (e *Engine) cardAdvanceToNearest(ctx context.Context, tc *turnContext, player *models.GamePlayer, target int, card *models.Card, diceTotal int) error {
	steps := target - player.Position
	if steps <= 0 {
		steps += models.BoardSize
	}
	if err := e.movePlayer(ctx, tc, player, steps, true); err != nil {
		return err
	}

	square, ok := board.SquareAt(player.Position)
	if !ok {
		return apperrors.Newf(apperrors.ErrInvariantViolation, "位置%d没有地块", player.Position)
	}

	ownership, err := tc.tx.Property().FindByGameAndProperty(ctx, tc.game.ID, square.ID)
	if err != nil {
		return err
	}
	// 无主或自有或已抵押：卡牌移动不产生购地要约
	if ownership == nil || ownership.OwnerID == player.ID || ownership.Mortgaged {
		return nil
	}

	var rent int64
	if square.Type == models.PropertyTypeUtility {
		rent = int64(card.Extra.RentMultiplier) * int64(diceTotal)
	} else {
		base, err := e.rentFor(ctx, tc.tx, tc.game.ID, ownership, square, diceTotal)
		if err != nil {
			return err
		}
		rent = base * int64(card.Extra.RentMultiplier)
	}
	return e.chargeRent(ctx, tc, player, ownership, square, rent)
}

// cardRepairLevy 修缮费：按持有的房屋/酒店数缴费
func (e *Engine) cardRepairLevy(ctx context.Context, tc *turnContext, player *models.GamePlayer, card *models.Card) error {
	holdings, err := tc.tx.Property().ListByOwner(ctx, tc.game.ID, player.ID)
	if err != nil {
		return err
	}

	var houses, hotels int64
	for _, gp := range holdings {
		if gp.Houses >= 5 {
			hotels++
		} else {
			houses += int64(gp.Houses)
		}
	}

	levy := houses*card.Extra.PerHouse + hotels*card.Extra.PerHotel
	if levy == 0 {
		return nil
	}
	return e.cardDebit(ctx, tc, player, levy, card)
}

// cardPerPlayer 向/从每位其他玩家收付
// 金额为正表示向每位玩家收取，为负表示向每位玩家支付。
// 付不起的一侧按单笔挂账，已结清的笔数不回滚。
func (e *Engine) cardPerPlayer(ctx context.Context, tc *turnContext, player *models.GamePlayer, card *models.Card) error {
	others, err := tc.tx.Player().ListActive(ctx, tc.game.ID)
	if err != nil {
		return err
	}

	per := card.Extra.PerPlayer
	if per == 0 {
		return nil
	}

	for _, other := range others {
		if other.ID == player.ID {
			continue
		}

		if per > 0 {
			// 向每位玩家收取：对方付不起时对方挂账
			if err := tc.tx.Player().DeductBalance(ctx, other.ID, per); err != nil {
				if apperrors.GetCode(err) == apperrors.ErrInsufficientFunds {
					pid := player.ID
					if err := tc.tx.Player().SetDebt(ctx, other.ID, per, &pid); err != nil {
						return err
					}
					continue
				}
				return err
			}
			if err := tc.tx.Player().AddBalance(ctx, player.ID, per); err != nil {
				return err
			}
			player.Balance += per
			tc.record(other.ID, models.HistoryActionCard, 0, 0, -per,
				map[string]interface{}{"sort": card.Sort, "to_player_id": player.ID})
			tc.record(player.ID, models.HistoryActionCard, player.Position, player.Position, per,
				map[string]interface{}{"sort": card.Sort, "from_player_id": other.ID})
		} else {
			// 向每位玩家支付
			pay := -per
			if err := tc.tx.Player().DeductBalance(ctx, player.ID, pay); err != nil {
				if apperrors.GetCode(err) == apperrors.ErrInsufficientFunds {
					oid := other.ID
					if err := tc.tx.Player().SetDebt(ctx, player.ID, pay, &oid); err != nil {
						return err
					}
					player.OutstandingDebt = pay
					continue
				}
				return err
			}
			player.Balance -= pay
			if err := tc.tx.Player().AddBalance(ctx, other.ID, pay); err != nil {
				return err
			}
			tc.record(player.ID, models.HistoryActionCard, player.Position, player.Position, -pay,
				map[string]interface{}{"sort": card.Sort, "to_player_id": other.ID})
			tc.record(other.ID, models.HistoryActionCard, 0, 0, pay,
				map[string]interface{}{"sort": card.Sort, "from_player_id": player.ID})
		}
	}
	return nil
}
