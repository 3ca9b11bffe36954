package game

import (
	"context"
	"strings"

	apperrors "github.com/wfunc/tycoon-game/internal/errors"
	"github.com/wfunc/tycoon-game/internal/logger"
	"github.com/wfunc/tycoon-game/internal/models"
	"github.com/wfunc/tycoon-game/internal/repository"
)

// TradeLeg 交易一侧的出价（现金与地块）
type TradeLeg struct {
	Cash        int64  `json:"cash"`
	PropertyIDs []uint `json:"property_ids"`
}

// 交易响应决定
const (
	TradeDecisionAccept  = "accept"
	TradeDecisionReject  = "reject"
	TradeDecisionCounter = "counter"
)

// ProposeTrade 发起交易提案
// 创建时校验每个地块属于出让方；接受时会再次校验（两次校验之间归属可能变化）。
func (e *Engine) ProposeTrade(ctx context.Context, gameID, fromPlayerID, toPlayerID uint, offer, request TradeLeg) (*models.GameTrade, error) {
	if fromPlayerID == toPlayerID {
		return nil, apperrors.New(apperrors.ErrSelfTrade)
	}
	if offer.Cash < 0 || request.Cash < 0 {
		return nil, apperrors.New(apperrors.ErrInvalidParam, "现金金额不能为负")
	}
	if offer.Cash == 0 && request.Cash == 0 &&
		len(offer.PropertyIDs) == 0 && len(request.PropertyIDs) == 0 {
		return nil, apperrors.New(apperrors.ErrInvalidParam, "交易不能为空")
	}

	var trade *models.GameTrade
	err := e.txMgr.WithTransaction(ctx, func(tx *repository.Transaction) error {
		if _, err := loadRunningGame(ctx, tx, gameID); err != nil {
			return err
		}
		if _, err := requirePlayerActive(ctx, tx, gameID, fromPlayerID); err != nil {
			return err
		}
		if _, err := requirePlayerActive(ctx, tx, gameID, toPlayerID); err != nil {
			return err
		}

		items := make([]models.GameTradeItem, 0, len(offer.PropertyIDs)+len(request.PropertyIDs))
		if err := e.validateLegOwnership(ctx, tx, gameID, fromPlayerID, offer.PropertyIDs); err != nil {
			return err
		}
		for _, pid := range offer.PropertyIDs {
			items = append(items, models.GameTradeItem{PropertyID: pid, Side: models.TradeSideOffer})
		}
		if err := e.validateLegOwnership(ctx, tx, gameID, toPlayerID, request.PropertyIDs); err != nil {
			return err
		}
		for _, pid := range request.PropertyIDs {
			items = append(items, models.GameTradeItem{PropertyID: pid, Side: models.TradeSideRequest})
		}

		trade = &models.GameTrade{
			GameID:       gameID,
			FromPlayerID: fromPlayerID,
			ToPlayerID:   toPlayerID,
			Type:         tradeType(offer, request),
			Status:       models.TradeStatusPending,
			OfferCash:    offer.Cash,
			RequestCash:  request.Cash,
			Items:        items,
		}
		return tx.Trade().Create(ctx, trade)
	})
	if err != nil {
		return nil, err
	}

	logger.LogTradeEvent("trade_proposed", trade.ID, gameID)
	return trade, nil
}

// tradeType 按两侧出价推导交易类型
func tradeType(offer, request TradeLeg) string {
	hasCash := offer.Cash > 0 || request.Cash > 0
	hasProps := len(offer.PropertyIDs) > 0 || len(request.PropertyIDs) > 0
	switch {
	case hasCash && hasProps:
		return models.TradeTypeMixed
	case hasProps:
		return models.TradeTypeProperty
	default:
		return models.TradeTypeCash
	}
}

// validateLegOwnership 校验一侧地块全部归出让方持有且未抵押
func (e *Engine) validateLegOwnership(ctx context.Context, tx *repository.Transaction, gameID, ownerID uint, propertyIDs []uint) error {
	for _, pid := range propertyIDs {
		gp, err := tx.Property().FindByGameAndProperty(ctx, gameID, pid)
		if err != nil {
			return err
		}
		if gp == nil || gp.OwnerID != ownerID {
			return apperrors.Newf(apperrors.ErrOwnershipViolation, "地块%d不属于出让方", pid)
		}
		if gp.Mortgaged {
			return apperrors.Newf(apperrors.ErrOwnershipViolation, "地块%d已抵押", pid)
		}
	}
	return nil
}

// CounterOffer 还价的新出价（方向以还价方为发起方）
type CounterOffer struct {
	Offer   TradeLeg `json:"offer"`
	Request TradeLeg `json:"request"`
}

// RespondTrade 响应交易提案
// accept是关键原子操作：重新校验全部地块归属与双方余额后，
// 地块转移与现金划转作为一个整体生效，任一校验失败则整体回滚。
// counter终结原交易并派生一个方向对调的新PENDING交易。
func (e *Engine) RespondTrade(ctx context.Context, tradeID, responderID uint, decision string, counter *CounterOffer) (*models.GameTrade, error) {
	var result *models.GameTrade
	err := e.txMgr.WithTransaction(ctx, func(tx *repository.Transaction) error {
		trade, err := tx.Trade().FindByID(ctx, tradeID)
		if err != nil {
			return err
		}
		if trade.IsTerminal() {
			return apperrors.New(apperrors.ErrTradeResolved)
		}
		if trade.ToPlayerID != responderID {
			return apperrors.New(apperrors.ErrPermissionDenied, "只有受邀方可以响应交易")
		}
		if _, err := loadRunningGame(ctx, tx, trade.GameID); err != nil {
			return err
		}

		switch strings.ToLower(decision) {
		case TradeDecisionReject:
			if err := tx.Trade().UpdateStatusIfPending(ctx, tradeID, models.TradeStatusRejected); err != nil {
				return err
			}
			trade.Status = models.TradeStatusRejected
			result = trade
			return nil

		case TradeDecisionCounter:
			if counter == nil {
				return apperrors.New(apperrors.ErrInvalidParam, "还价缺少新的出价")
			}
			if err := tx.Trade().UpdateStatusIfPending(ctx, tradeID, models.TradeStatusCountered); err != nil {
				return err
			}
			counterTrade, err := e.buildCounterTrade(ctx, tx, trade, counter.Offer, counter.Request)
			if err != nil {
				return err
			}
			result = counterTrade
			return nil

		case TradeDecisionAccept:
			if err := e.settleTrade(ctx, tx, trade); err != nil {
				return err
			}
			trade.Status = models.TradeStatusAccepted
			result = trade
			return nil
		}
		return apperrors.Newf(apperrors.ErrInvalidParam, "未知的交易决定: %s", decision)
	})
	if err != nil {
		return nil, err
	}

	logger.LogTradeEvent("trade_"+strings.ToLower(decision), tradeID, result.GameID)
	return result, nil
}

// buildCounterTrade 派生还价交易（方向对调，标记来源）
func (e *Engine) buildCounterTrade(ctx context.Context, tx *repository.Transaction, original *models.GameTrade, offer, request TradeLeg) (*models.GameTrade, error) {
	items := make([]models.GameTradeItem, 0, len(offer.PropertyIDs)+len(request.PropertyIDs))
	if err := e.validateLegOwnership(ctx, tx, original.GameID, original.ToPlayerID, offer.PropertyIDs); err != nil {
		return nil, err
	}
	for _, pid := range offer.PropertyIDs {
		items = append(items, models.GameTradeItem{PropertyID: pid, Side: models.TradeSideOffer})
	}
	if err := e.validateLegOwnership(ctx, tx, original.GameID, original.FromPlayerID, request.PropertyIDs); err != nil {
		return nil, err
	}
	for _, pid := range request.PropertyIDs {
		items = append(items, models.GameTradeItem{PropertyID: pid, Side: models.TradeSideRequest})
	}

	counter := &models.GameTrade{
		GameID:       original.GameID,
		FromPlayerID: original.ToPlayerID,
		ToPlayerID:   original.FromPlayerID,
		Type:         tradeType(offer, request),
		Status:       models.TradeStatusPending,
		OfferCash:    offer.Cash,
		RequestCash:  request.Cash,
		CounterOfID:  &original.ID,
		Items:        items,
	}
	if err := tx.Trade().Create(ctx, counter); err != nil {
		return nil, err
	}
	return counter, nil
}

// settleTrade 原子结算已接受的交易
func (e *Engine) settleTrade(ctx context.Context, tx *repository.Transaction, trade *models.GameTrade) error {
	// 锁定双方，序列化对同一对玩家的并发结算
	from, err := requirePlayerActive(ctx, tx, trade.GameID, trade.FromPlayerID)
	if err != nil {
		return err
	}
	to, err := requirePlayerActive(ctx, tx, trade.GameID, trade.ToPlayerID)
	if err != nil {
		return err
	}

	// 重新校验每个地块仍归出让方持有且未抵押
	var offerIDs, requestIDs []uint
	for _, item := range trade.Items {
		if item.Side == models.TradeSideOffer {
			offerIDs = append(offerIDs, item.PropertyID)
		} else {
			requestIDs = append(requestIDs, item.PropertyID)
		}
	}
	if err := e.validateLegOwnership(ctx, tx, trade.GameID, from.ID, offerIDs); err != nil {
		return err
	}
	if err := e.validateLegOwnership(ctx, tx, trade.GameID, to.ID, requestIDs); err != nil {
		return err
	}

	// 校验双方现金腿（余额不足时条件扣款失败，整体回滚）
	if trade.OfferCash > 0 {
		if err := tx.Player().DeductBalance(ctx, from.ID, trade.OfferCash); err != nil {
			return err
		}
		if err := tx.Player().AddBalance(ctx, to.ID, trade.OfferCash); err != nil {
			return err
		}
	}
	if trade.RequestCash > 0 {
		if err := tx.Player().DeductBalance(ctx, to.ID, trade.RequestCash); err != nil {
			return err
		}
		if err := tx.Player().AddBalance(ctx, from.ID, trade.RequestCash); err != nil {
			return err
		}
	}

	// 地块转移（条件更新，归属已变时失败回滚）
	for _, pid := range offerIDs {
		if err := tx.Property().Transfer(ctx, trade.GameID, pid, from.ID, to.ID); err != nil {
			return err
		}
	}
	for _, pid := range requestIDs {
		if err := tx.Property().Transfer(ctx, trade.GameID, pid, to.ID, from.ID); err != nil {
			return err
		}
	}

	if err := tx.Trade().UpdateStatusIfPending(ctx, trade.ID, models.TradeStatusAccepted); err != nil {
		return err
	}

	// 结算流水
	game := &models.Game{}
	game.ID = trade.GameID
	tc := newTurnContext(tx, game)
	tc.record(from.ID, models.HistoryActionTrade, from.Position, from.Position,
		trade.RequestCash-trade.OfferCash,
		map[string]interface{}{"trade_id": trade.ID, "properties_out": offerIDs, "properties_in": requestIDs})
	tc.record(to.ID, models.HistoryActionTrade, to.Position, to.Position,
		trade.OfferCash-trade.RequestCash,
		map[string]interface{}{"trade_id": trade.ID, "properties_out": requestIDs, "properties_in": offerIDs})
	return tc.flush(ctx)
}

// DeleteTrade 撤回交易提案（仅限未成交的交易，由发起方操作）
func (e *Engine) DeleteTrade(ctx context.Context, tradeID, requesterID uint) error {
	return e.txMgr.WithTransaction(ctx, func(tx *repository.Transaction) error {
		trade, err := tx.Trade().FindByID(ctx, tradeID)
		if err != nil {
			return err
		}
		if trade.FromPlayerID != requesterID {
			return apperrors.New(apperrors.ErrPermissionDenied, "只有发起方可以撤回交易")
		}
		return tx.Trade().Delete(ctx, tradeID)
	})
}
