package game

import (
	"context"

	"github.com/wfunc/tycoon-game/internal/board"
	apperrors "github.com/wfunc/tycoon-game/internal/errors"
	"github.com/wfunc/tycoon-game/internal/models"
	"github.com/wfunc/tycoon-game/internal/repository"
	"go.uber.org/zap"
)

// 卡牌连锁移动的深度上限，防止目录数据异常导致的无限递归
const maxLandingDepth = 4

// TakeTurn 当前回合玩家掷骰行动
// 骰点由调用方提供（外部掷骰或AI决策），缺省时引擎代掷。
func (e *Engine) TakeTurn(ctx context.Context, gameID, playerID uint, roll *DiceRoll) (*TurnResult, error) {
	r := DiceRoll{}
	if roll != nil {
		r = *roll
	} else {
		r = e.RollDice()
	}
	if !r.Valid() {
		return nil, apperrors.New(apperrors.ErrInvalidParam, "骰点必须在1-6之间")
	}

	var result *TurnResult
	err := e.txMgr.WithTransaction(ctx, func(tx *repository.Transaction) error {
		game, err := loadRunningGame(ctx, tx, gameID)
		if err != nil {
			return err
		}
		if err := requireCurrentTurn(game, playerID); err != nil {
			return err
		}
		player, err := requirePlayerActive(ctx, tx, gameID, playerID)
		if err != nil {
			return err
		}

		tc := newTurnContext(tx, game)

		// 监狱中的回合走独立状态机
		if player.InJail {
			result, err = e.jailTurn(ctx, tc, player, r)
			if err != nil {
				return err
			}
			return tc.flush(ctx)
		}

		// 指定骰点特权覆盖本次掷骰
		r, err = e.applyRollPerks(ctx, tc, player, r)
		if err != nil {
			return err
		}

		if err := e.movePlayer(ctx, tc, player, r.Total(), true); err != nil {
			return err
		}

		offer, err := e.dispatchLanding(ctx, tc, player, r.Total(), 0)
		if err != nil {
			return err
		}

		result = &TurnResult{
			NewPosition:   player.Position,
			Effects:       tc.effects,
			PurchaseOffer: offer,
			InJail:        player.InJail,
			TraceID:       tc.traceID,
		}
		return tc.flush(ctx)
	})
	if err != nil {
		return nil, err
	}

	e.log.Debug("回合行动完成",
		zap.Uint("game_id", gameID),
		zap.Uint("player_id", playerID),
		zap.Int("new_position", result.NewPosition),
	)
	return result, nil
}

// applyRollPerks 应用影响掷骰的激活特权（指定骰点、移动加成）
func (e *Engine) applyRollPerks(ctx context.Context, tc *turnContext, player *models.GamePlayer, r DiceRoll) (DiceRoll, error) {
	active, err := tc.tx.Perk().ListActiveByPlayer(ctx, player.ID)
	if err != nil {
		return r, err
	}

	for _, perk := range active {
		switch perk.Kind {
		case models.PerkExactRoll:
			// 只覆盖紧随其后的一次掷骰，用后即失效
			d1, d2 := intFromParams(perk.Params, "d1", r.D1), intFromParams(perk.Params, "d2", r.D2)
			if d1 >= 1 && d1 <= 6 && d2 >= 1 && d2 <= 6 {
				r = DiceRoll{D1: d1, D2: d2}
			}
			if err := tc.tx.Perk().Consume(ctx, perk.ID); err != nil {
				return r, err
			}
			tc.record(player.ID, models.HistoryActionPerk, player.Position, player.Position, 0,
				map[string]interface{}{"kind": perk.Kind, "d1": r.D1, "d2": r.D2})
		case models.PerkRollBoost:
			// 本次移动距离翻倍
			r = DiceRoll{D1: r.D1 * 2, D2: r.D2 * 2}
			if err := tc.tx.Perk().Consume(ctx, perk.ID); err != nil {
				return r, err
			}
			tc.record(player.ID, models.HistoryActionPerk, player.Position, player.Position, 0,
				map[string]interface{}{"kind": perk.Kind, "boosted_total": r.Total()})
		}
	}
	return r, nil
}

// movePlayer 按步数移动玩家，环绕0-39，经过GO发放奖励
// steps可为负（后退卡），后退不触发经过GO奖励。
func (e *Engine) movePlayer(ctx context.Context, tc *turnContext, player *models.GamePlayer, steps int, awardPassGo bool) error {
	oldPos := player.Position
	raw := oldPos + steps
	newPos := board.Normalize(raw)

	if err := tc.tx.Player().UpdatePosition(ctx, player.ID, newPos); err != nil {
		return err
	}
	player.Position = newPos
	tc.record(player.ID, models.HistoryActionMove, oldPos, newPos, 0,
		map[string]interface{}{"steps": steps})

	// 前进越过位置39回到0才算完成一圈
	if awardPassGo && steps > 0 && raw >= models.BoardSize {
		if err := tc.tx.Player().AddBalance(ctx, player.ID, e.rules.PassGoCredit); err != nil {
			return err
		}
		player.Balance += e.rules.PassGoCredit
		tc.record(player.ID, models.HistoryActionPassGo, newPos, newPos, e.rules.PassGoCredit, nil)
	}
	return nil
}

// teleportPlayer 直接落位，不经过中间地块，不发放经过GO奖励
func (e *Engine) teleportPlayer(ctx context.Context, tc *turnContext, player *models.GamePlayer, target int) error {
	oldPos := player.Position
	newPos := board.Normalize(target)

	if err := tc.tx.Player().UpdatePosition(ctx, player.ID, newPos); err != nil {
		return err
	}
	player.Position = newPos
	tc.record(player.ID, models.HistoryActionMove, oldPos, newPos, 0,
		map[string]interface{}{"teleport": true})
	return nil
}

// dispatchLanding 落地效果分发
// diceTotal用于公用事业计租；depth限制卡牌引发的连锁移动。
func (e *Engine) dispatchLanding(ctx context.Context, tc *turnContext, player *models.GamePlayer, diceTotal int, depth int) (*PurchaseOffer, error) {
	if depth > maxLandingDepth {
		return nil, apperrors.New(apperrors.ErrInvariantViolation, "落地效果递归过深")
	}

	square, ok := board.SquareAt(player.Position)
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrInvariantViolation, "位置%d没有地块", player.Position)
	}

	switch square.Type {
	case models.PropertyTypeStreet, models.PropertyTypeRailroad, models.PropertyTypeUtility:
		return e.landOnOwnable(ctx, tc, player, square, diceTotal)

	case models.PropertyTypeTax:
		return nil, e.chargeTax(ctx, tc, player, square)

	case models.PropertyTypeChance:
		return nil, e.drawAndApply(ctx, tc, player, models.DeckChance, diceTotal, depth)

	case models.PropertyTypeChest:
		return nil, e.drawAndApply(ctx, tc, player, models.DeckChest, diceTotal, depth)

	case models.PropertyTypeCorner:
		if player.Position == models.PositionGoToJail {
			return nil, e.sendToJail(ctx, tc, player)
		}
		// GO、监狱探访、免费停车：无货币效果
		return nil, nil
	}
	return nil, nil
}

// landOnOwnable 落在可持有地块
func (e *Engine) landOnOwnable(ctx context.Context, tc *turnContext, player *models.GamePlayer, square *models.Property, diceTotal int) (*PurchaseOffer, error) {
	ownership, err := tc.tx.Property().FindByGameAndProperty(ctx, tc.game.ID, square.ID)
	if err != nil {
		return nil, err
	}

	// 无主：给出购地要约，由调用方决定买或不买
	if ownership == nil {
		price := e.purchasePrice(ctx, tc.tx, player.ID, square.Price)
		if player.Balance >= price {
			return &PurchaseOffer{
				PropertyID: square.ID,
				Name:       square.Name,
				Position:   square.Position,
				Price:      price,
			}, nil
		}
		return nil, nil
	}

	// 自有地块或已抵押：不收租
	if ownership.OwnerID == player.ID || ownership.Mortgaged {
		return nil, nil
	}

	rent, err := e.rentFor(ctx, tc.tx, tc.game.ID, ownership, square, diceTotal)
	if err != nil {
		return nil, err
	}

	// 地主的双倍租金特权
	if doubled, err := e.consumeActivePerk(ctx, tc.tx, ownership.OwnerID, models.PerkDoubleRent); err != nil {
		return nil, err
	} else if doubled {
		rent *= 2
	}

	return nil, e.chargeRent(ctx, tc, player, ownership, square, rent)
}

// rentFor 按地块类型计算租金
func (e *Engine) rentFor(ctx context.Context, tx *repository.Transaction, gameID uint, ownership *models.GameProperty, square *models.Property, diceTotal int) (int64, error) {
	switch square.Type {
	case models.PropertyTypeStreet:
		return square.RentAt(ownership.Houses), nil

	case models.PropertyTypeRailroad:
		count, err := tx.Property().CountByOwnerAndGroup(ctx, gameID, ownership.OwnerID, "railroad")
		if err != nil {
			return 0, err
		}
		return tierValue(e.rules.RailroadRents, int(count)), nil

	case models.PropertyTypeUtility:
		count, err := tx.Property().CountByOwnerAndGroup(ctx, gameID, ownership.OwnerID, "utility")
		if err != nil {
			return 0, err
		}
		return tierValue(e.rules.UtilityMultipliers, int(count)) * int64(diceTotal), nil
	}
	return 0, nil
}

// tierValue 按持有数取档位值（1件取第1档）
func tierValue(tiers []int64, count int) int64 {
	if count <= 0 || len(tiers) == 0 {
		return 0
	}
	if count > len(tiers) {
		count = len(tiers)
	}
	return tiers[count-1]
}

// chargeRent 收取租金
// 付款方的护盾特权免除本次租金；余额不足时记为待结欠款，回合结束前必须结清。
func (e *Engine) chargeRent(ctx context.Context, tc *turnContext, payer *models.GamePlayer, ownership *models.GameProperty, square *models.Property, rent int64) error {
	if rent <= 0 {
		return nil
	}

	if shielded, err := e.consumeActivePerk(ctx, tc.tx, payer.ID, models.PerkShield); err != nil {
		return err
	} else if shielded {
		tc.record(payer.ID, models.HistoryActionRent, payer.Position, payer.Position, 0,
			map[string]interface{}{"property_id": square.ID, "shielded": true})
		return nil
	}

	ownerID := ownership.OwnerID
	if err := tc.tx.Player().DeductBalance(ctx, payer.ID, rent); err != nil {
		if apperrors.GetCode(err) == apperrors.ErrInsufficientFunds {
			// 付不起：挂账，由玩家筹款结清或宣告破产
			if err := tc.tx.Player().SetDebt(ctx, payer.ID, rent, &ownerID); err != nil {
				return err
			}
			payer.OutstandingDebt = rent
			payer.CreditorID = &ownerID
			tc.record(payer.ID, models.HistoryActionRent, payer.Position, payer.Position, 0,
				map[string]interface{}{"property_id": square.ID, "owed": rent, "deferred": true})
			return nil
		}
		return err
	}
	payer.Balance -= rent

	if err := tc.tx.Player().AddBalance(ctx, ownerID, rent); err != nil {
		return err
	}

	tc.record(payer.ID, models.HistoryActionRent, payer.Position, payer.Position, -rent,
		map[string]interface{}{"property_id": square.ID, "owner_id": ownerID})
	tc.record(ownerID, models.HistoryActionRent, 0, 0, rent,
		map[string]interface{}{"property_id": square.ID, "payer_id": payer.ID})
	return nil
}

// chargeTax 税地块的固定税额
// 退税特权免除本次税款；余额不足时挂账（债权方为银行）。
func (e *Engine) chargeTax(ctx context.Context, tc *turnContext, player *models.GamePlayer, square *models.Property) error {
	tax := square.TaxAmount
	if tax <= 0 {
		return nil
	}

	if refunded, err := e.consumeActivePerk(ctx, tc.tx, player.ID, models.PerkTaxRefund); err != nil {
		return err
	} else if refunded {
		tc.record(player.ID, models.HistoryActionTax, player.Position, player.Position, 0,
			map[string]interface{}{"property_id": square.ID, "refunded": true})
		return nil
	}

	if err := tc.tx.Player().DeductBalance(ctx, player.ID, tax); err != nil {
		if apperrors.GetCode(err) == apperrors.ErrInsufficientFunds {
			if err := tc.tx.Player().SetDebt(ctx, player.ID, tax, nil); err != nil {
				return err
			}
			player.OutstandingDebt = tax
			tc.record(player.ID, models.HistoryActionTax, player.Position, player.Position, 0,
				map[string]interface{}{"property_id": square.ID, "owed": tax, "deferred": true})
			return nil
		}
		return err
	}
	player.Balance -= tax

	tc.record(player.ID, models.HistoryActionTax, player.Position, player.Position, -tax,
		map[string]interface{}{"property_id": square.ID})
	return nil
}

// sendToJail 送入监狱
// 直接落位到监狱格，不经过中间地块，不发放经过GO奖励。
func (e *Engine) sendToJail(ctx context.Context, tc *turnContext, player *models.GamePlayer) error {
	from := player.Position
	if err := e.teleportPlayer(ctx, tc, player, models.PositionJail); err != nil {
		return err
	}
	if err := tc.tx.Player().SetJail(ctx, player.ID, true); err != nil {
		return err
	}
	player.InJail = true
	player.JailAttempts = 0
	tc.record(player.ID, models.HistoryActionJailIn, from, models.PositionJail, 0, nil)
	return nil
}

// jailTurn 监狱中的回合：尝试掷双出狱
// 连续失败达到上限时强制缴纳罚金出狱。主动缴罚金与用出狱卡是独立操作。
func (e *Engine) jailTurn(ctx context.Context, tc *turnContext, player *models.GamePlayer, r DiceRoll) (*TurnResult, error) {
	if r.IsDouble() {
		if err := e.releaseFromJail(ctx, tc, player, "doubles"); err != nil {
			return nil, err
		}
		if err := e.movePlayer(ctx, tc, player, r.Total(), true); err != nil {
			return nil, err
		}
		offer, err := e.dispatchLanding(ctx, tc, player, r.Total(), 0)
		if err != nil {
			return nil, err
		}
		return &TurnResult{
			NewPosition:   player.Position,
			Effects:       tc.effects,
			PurchaseOffer: offer,
			InJail:        false,
			TraceID:       tc.traceID,
		}, nil
	}

	if err := tc.tx.Player().IncrementJailAttempts(ctx, player.ID); err != nil {
		return nil, err
	}
	player.JailAttempts++

	if player.JailAttempts >= e.rules.JailMaxAttempts {
		// 三振出局：强制缴罚金出狱
		if err := tc.tx.Player().DeductBalance(ctx, player.ID, e.rules.JailFine); err != nil {
			if apperrors.GetCode(err) != apperrors.ErrInsufficientFunds {
				return nil, err
			}
			if err := tc.tx.Player().SetDebt(ctx, player.ID, e.rules.JailFine, nil); err != nil {
				return nil, err
			}
			player.OutstandingDebt = e.rules.JailFine
		} else {
			player.Balance -= e.rules.JailFine
		}
		if err := e.releaseFromJail(ctx, tc, player, "forced_fine"); err != nil {
			return nil, err
		}
		if err := e.movePlayer(ctx, tc, player, r.Total(), true); err != nil {
			return nil, err
		}
		offer, err := e.dispatchLanding(ctx, tc, player, r.Total(), 0)
		if err != nil {
			return nil, err
		}
		return &TurnResult{
			NewPosition:   player.Position,
			Effects:       tc.effects,
			PurchaseOffer: offer,
			InJail:        false,
			TraceID:       tc.traceID,
		}, nil
	}

	tc.record(player.ID, models.HistoryActionJailIn, player.Position, player.Position, 0,
		map[string]interface{}{"roll_failed": true, "attempts": player.JailAttempts})
	return &TurnResult{
		NewPosition: player.Position,
		Effects:     tc.effects,
		InJail:      true,
		TraceID:     tc.traceID,
	}, nil
}

// releaseFromJail 出狱
func (e *Engine) releaseFromJail(ctx context.Context, tc *turnContext, player *models.GamePlayer, reason string) error {
	if err := tc.tx.Player().SetJail(ctx, player.ID, false); err != nil {
		return err
	}
	player.InJail = false
	player.JailAttempts = 0
	tc.record(player.ID, models.HistoryActionJailOut, player.Position, player.Position, 0,
		map[string]interface{}{"reason": reason})
	return nil
}

// PayJailFine 主动缴纳罚金立即出狱
func (e *Engine) PayJailFine(ctx context.Context, gameID, playerID uint) error {
	return e.txMgr.WithTransaction(ctx, func(tx *repository.Transaction) error {
		game, err := loadRunningGame(ctx, tx, gameID)
		if err != nil {
			return err
		}
		player, err := requirePlayerActive(ctx, tx, gameID, playerID)
		if err != nil {
			return err
		}
		if !player.InJail {
			return apperrors.New(apperrors.ErrInvalidState, "玩家不在监狱中")
		}

		if err := tx.Player().DeductBalance(ctx, player.ID, e.rules.JailFine); err != nil {
			return err
		}

		tc := newTurnContext(tx, game)
		if err := e.releaseFromJail(ctx, tc, player, "fine"); err != nil {
			return err
		}
		tc.history[len(tc.history)-1].Amount = -e.rules.JailFine
		return tc.flush(ctx)
	})
}

// UseJailCard 使用出狱卡立即出狱（机会/公益金两张卡独立持有）
func (e *Engine) UseJailCard(ctx context.Context, gameID, playerID uint) error {
	return e.txMgr.WithTransaction(ctx, func(tx *repository.Transaction) error {
		game, err := loadRunningGame(ctx, tx, gameID)
		if err != nil {
			return err
		}
		player, err := requirePlayerActive(ctx, tx, gameID, playerID)
		if err != nil {
			return err
		}
		if !player.InJail {
			return apperrors.New(apperrors.ErrInvalidState, "玩家不在监狱中")
		}

		var deck string
		switch {
		case player.HasChanceJail:
			deck = models.DeckChance
		case player.HasChestJail:
			deck = models.DeckChest
		default:
			return apperrors.New(apperrors.ErrInvalidState, "没有出狱卡")
		}

		if err := tx.Player().SetJailCard(ctx, player.ID, deck, false); err != nil {
			return err
		}

		tc := newTurnContext(tx, game)
		if err := e.releaseFromJail(ctx, tc, player, "jail_card"); err != nil {
			return err
		}
		tc.history[len(tc.history)-1].Extra["deck"] = deck
		return tc.flush(ctx)
	})
}

// EndTurn 结束回合并把行动权移交下一位未破产玩家
// 存在未结清欠款时禁止结束回合；额外回合特权让当前玩家保留行动权。
func (e *Engine) EndTurn(ctx context.Context, gameID, playerID uint) (uint, error) {
	var nextID uint
	err := e.txMgr.WithTransaction(ctx, func(tx *repository.Transaction) error {
		game, err := loadRunningGame(ctx, tx, gameID)
		if err != nil {
			return err
		}
		if err := requireCurrentTurn(game, playerID); err != nil {
			return err
		}
		player, err := requirePlayerActive(ctx, tx, gameID, playerID)
		if err != nil {
			return err
		}
		if player.OutstandingDebt > 0 {
			return apperrors.New(apperrors.ErrDebtOutstanding)
		}

		tc := newTurnContext(tx, game)

		// 额外回合特权：行动权不移交
		if kept, err := e.consumeActivePerk(ctx, tx, player.ID, models.PerkExtraTurn); err != nil {
			return err
		} else if kept {
			nextID = player.ID
			tc.record(player.ID, models.HistoryActionTurnEnd, player.Position, player.Position, 0,
				map[string]interface{}{"extra_turn": true})
			return tc.flush(ctx)
		}

		next, err := e.nextActivePlayer(ctx, tx, game.ID, player.ID)
		if err != nil {
			return err
		}
		if err := tx.Game().SetCurrentTurn(ctx, game.ID, next.ID); err != nil {
			return err
		}
		nextID = next.ID

		tc.record(player.ID, models.HistoryActionTurnEnd, player.Position, player.Position, 0,
			map[string]interface{}{"next_player_id": next.ID})
		return tc.flush(ctx)
	})
	if err != nil {
		return 0, err
	}
	return nextID, nil
}

// nextActivePlayer 固定轮转中的下一位未破产玩家
func (e *Engine) nextActivePlayer(ctx context.Context, tx *repository.Transaction, gameID, currentID uint) (*models.GamePlayer, error) {
	players, err := tx.Player().ListActive(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if len(players) == 0 {
		return nil, apperrors.New(apperrors.ErrInvariantViolation, "没有存活玩家")
	}

	for i, p := range players {
		if p.ID == currentID {
			return players[(i+1)%len(players)], nil
		}
	}

	// 当前玩家刚破产出局，已不在存活列表中：按其原顺位接续，而不是回到首位
	current, err := tx.Player().FindByID(ctx, currentID)
	if err != nil {
		return nil, err
	}
	for _, p := range players {
		if p.TurnOrder > current.TurnOrder {
			return p, nil
		}
	}
	return players[0], nil
}

// consumeActivePerk 查找并消耗一个激活中的指定特权，返回是否生效
func (e *Engine) consumeActivePerk(ctx context.Context, tx *repository.Transaction, playerID uint, kind string) (bool, error) {
	active, err := tx.Perk().ListActiveByPlayer(ctx, playerID)
	if err != nil {
		return false, err
	}
	for _, perk := range active {
		if perk.Kind == kind {
			if err := tx.Perk().Consume(ctx, perk.ID); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

// intFromParams 从特权参数里取整数
func intFromParams(params models.JSONMap, key string, fallback int) int {
	if params == nil {
		return fallback
	}
	switch v := params[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	return fallback
}
