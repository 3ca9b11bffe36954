package game

import (
	"context"

	"github.com/wfunc/tycoon-game/internal/board"
	apperrors "github.com/wfunc/tycoon-game/internal/errors"
	"github.com/wfunc/tycoon-game/internal/models"
	"github.com/wfunc/tycoon-game/internal/repository"
	"go.uber.org/zap"
)

// purchasePrice 计算玩家实际购地价（计入激活中的购地折扣特权，不消耗）
func (e *Engine) purchasePrice(ctx context.Context, tx *repository.Transaction, playerID uint, price int64) int64 {
	active, err := tx.Perk().ListActiveByPlayer(ctx, playerID)
	if err != nil {
		return price
	}
	for _, perk := range active {
		if perk.Kind == models.PerkPropertyDiscount {
			return int64(float64(price) * (1 - e.rules.PropertyDiscount))
		}
	}
	return price
}

// BuyProperty 确认购买当前落位的无主地块
// 购地只允许在自己的回合、站在该地块上时进行；扣款与归属创建同事务完成。
func (e *Engine) BuyProperty(ctx context.Context, gameID, playerID, propertyID uint) ([]Effect, error) {
	var effects []Effect
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

		square, ok := board.SquareAt(player.Position)
		if !ok || square.ID != propertyID {
			return apperrors.New(apperrors.ErrInvalidState, "只能购买当前落位的地块")
		}
		if !square.IsOwnable() {
			return apperrors.New(apperrors.ErrInvalidState, "该地块不可购买")
		}

		existing, err := tx.Property().FindByGameAndProperty(ctx, gameID, propertyID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperrors.New(apperrors.ErrInvalidState, "地块已被持有")
		}

		price := square.Price
		if discounted, err := e.consumeActivePerk(ctx, tx, playerID, models.PerkPropertyDiscount); err != nil {
			return err
		} else if discounted {
			price = int64(float64(price) * (1 - e.rules.PropertyDiscount))
		}

		if err := tx.Player().DeductBalance(ctx, playerID, price); err != nil {
			return err
		}

		// 唯一索引兜底：并发购买只有一方能创建成功
		gp := &models.GameProperty{
			GameID:     gameID,
			PropertyID: propertyID,
			OwnerID:    playerID,
		}
		if err := tx.Property().Create(ctx, gp); err != nil {
			return err
		}

		tc := newTurnContext(tx, game)
		tc.record(playerID, models.HistoryActionPurchase, player.Position, player.Position, -price,
			map[string]interface{}{"property_id": propertyID, "name": square.Name})
		effects = tc.effects
		return tc.flush(ctx)
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("购地成功",
		zap.Uint("game_id", gameID),
		zap.Uint("player_id", playerID),
		zap.Uint("property_id", propertyID),
	)
	return effects, nil
}

// Mortgage 抵押地块换取现金（购价的固定比例）
// 抵押期间不收租。带建筑的地块不可抵押。
func (e *Engine) Mortgage(ctx context.Context, gameID, playerID, propertyID uint) ([]Effect, error) {
	var effects []Effect
	err := e.txMgr.WithTransaction(ctx, func(tx *repository.Transaction) error {
		game, err := loadRunningGame(ctx, tx, gameID)
		if err != nil {
			return err
		}
		player, err := requirePlayerActive(ctx, tx, gameID, playerID)
		if err != nil {
			return err
		}

		gp, err := tx.Property().FindByGameAndProperty(ctx, gameID, propertyID)
		if err != nil {
			return err
		}
		if gp == nil || gp.OwnerID != playerID {
			return apperrors.New(apperrors.ErrOwnershipViolation)
		}
		if gp.Houses > 0 {
			return apperrors.New(apperrors.ErrInvalidState, "带建筑的地块不可抵押")
		}

		if err := tx.Property().SetMortgaged(ctx, gameID, propertyID, playerID, true); err != nil {
			return err
		}

		advance := int64(float64(gp.Property.Price) * e.rules.MortgageRate)
		if err := tx.Player().AddBalance(ctx, playerID, advance); err != nil {
			return err
		}

		tc := newTurnContext(tx, game)
		tc.record(playerID, models.HistoryActionMortgage, player.Position, player.Position, advance,
			map[string]interface{}{"property_id": propertyID})
		effects = tc.effects
		return tc.flush(ctx)
	})
	if err != nil {
		return nil, err
	}
	return effects, nil
}

// Unmortgage 赎回抵押地块（退还抵押价款）
func (e *Engine) Unmortgage(ctx context.Context, gameID, playerID, propertyID uint) ([]Effect, error) {
	var effects []Effect
	err := e.txMgr.WithTransaction(ctx, func(tx *repository.Transaction) error {
		game, err := loadRunningGame(ctx, tx, gameID)
		if err != nil {
			return err
		}
		player, err := requirePlayerActive(ctx, tx, gameID, playerID)
		if err != nil {
			return err
		}

		gp, err := tx.Property().FindByGameAndProperty(ctx, gameID, propertyID)
		if err != nil {
			return err
		}
		if gp == nil || gp.OwnerID != playerID {
			return apperrors.New(apperrors.ErrOwnershipViolation)
		}

		cost := int64(float64(gp.Property.Price) * e.rules.MortgageRate)
		if err := tx.Player().DeductBalance(ctx, playerID, cost); err != nil {
			return err
		}

		if err := tx.Property().SetMortgaged(ctx, gameID, propertyID, playerID, false); err != nil {
			return err
		}

		tc := newTurnContext(tx, game)
		tc.record(playerID, models.HistoryActionUnmortgage, player.Position, player.Position, -cost,
			map[string]interface{}{"property_id": propertyID})
		effects = tc.effects
		return tc.flush(ctx)
	})
	if err != nil {
		return nil, err
	}
	return effects, nil
}

// SettleDebt 结清挂账的强制支付（租金/税/罚金）
// 结清前无法结束回合；筹款手段是玩家自己的事（抵押、交易）。
func (e *Engine) SettleDebt(ctx context.Context, gameID, playerID uint) ([]Effect, error) {
	var effects []Effect
	err := e.txMgr.WithTransaction(ctx, func(tx *repository.Transaction) error {
		game, err := loadRunningGame(ctx, tx, gameID)
		if err != nil {
			return err
		}
		player, err := requirePlayerActive(ctx, tx, gameID, playerID)
		if err != nil {
			return err
		}
		if player.OutstandingDebt == 0 {
			return apperrors.New(apperrors.ErrInvalidState, "没有待结清欠款")
		}

		debt := player.OutstandingDebt
		creditorID := player.CreditorID

		if err := tx.Player().DeductBalance(ctx, playerID, debt); err != nil {
			return err
		}
		if creditorID != nil {
			if err := tx.Player().AddBalance(ctx, *creditorID, debt); err != nil {
				return err
			}
		}
		if err := tx.Player().ClearDebt(ctx, playerID); err != nil {
			return err
		}

		tc := newTurnContext(tx, game)
		extra := map[string]interface{}{"settled": true}
		if creditorID != nil {
			extra["creditor_id"] = *creditorID
		}
		tc.record(playerID, models.HistoryActionRent, player.Position, player.Position, -debt, extra)
		if creditorID != nil {
			tc.record(*creditorID, models.HistoryActionRent, 0, 0, debt,
				map[string]interface{}{"payer_id": playerID, "settled": true})
		}
		effects = tc.effects
		return tc.flush(ctx)
	})
	if err != nil {
		return nil, err
	}
	return effects, nil
}
