package agent

import (
	"context"

	apperrors "github.com/wfunc/tycoon-game/internal/errors"
	"github.com/wfunc/tycoon-game/internal/game"
	"github.com/wfunc/tycoon-game/internal/logger"
	"github.com/wfunc/tycoon-game/internal/models"
	"go.uber.org/zap"
)

// Driver 把决策信封映射到引擎合约
// 引擎对每个动作做全量规则校验，这里只负责结构映射。
type Driver struct {
	engine *game.Engine
	log    *zap.Logger
}

// NewDriver 创建代理驱动
func NewDriver(engine *game.Engine) *Driver {
	return &Driver{
		engine: engine,
		log:    logger.GetModuleLogger("agent"),
	}
}

// Outcome 动作执行结果（按动作类型填充对应字段）
type Outcome struct {
	Action     string            `json:"action"`
	Turn       *game.TurnResult  `json:"turn,omitempty"`
	Effects    []game.Effect     `json:"effects,omitempty"`
	Trade      *models.GameTrade `json:"trade,omitempty"`
	NextPlayer uint              `json:"next_player,omitempty"`
	Bankruptcy *game.BankruptcyResult `json:"bankruptcy,omitempty"`
}

type propertyPayload struct {
	PropertyID uint `json:"property_id"`
}

type proposeTradePayload struct {
	ToPlayerID uint          `json:"to_player_id"`
	Offer      game.TradeLeg `json:"offer"`
	Request    game.TradeLeg `json:"request"`
}

type respondTradePayload struct {
	TradeID  uint               `json:"trade_id"`
	Decision string             `json:"decision"`
	Counter  *game.CounterOffer `json:"counter,omitempty"`
}

type activatePerkPayload struct {
	Kind   string         `json:"kind"`
	Params models.JSONMap `json:"params,omitempty"`
}

// Execute 以指定玩家身份执行一条已解析的决策
func (d *Driver) Execute(ctx context.Context, gameID, playerID uint, decision *Decision) (*Outcome, error) {
	d.log.Info("执行代理决策",
		zap.Uint("game_id", gameID),
		zap.Uint("player_id", playerID),
		zap.String("action", decision.Type),
		zap.Float64("confidence", decision.Confidence),
		zap.String("reasoning", decision.Reasoning),
	)

	out := &Outcome{Action: decision.Type}

	switch decision.Type {
	case ActionRoll:
		// 骰点永远由服务端掷出，代理无法指定
		result, err := d.engine.TakeTurn(ctx, gameID, playerID, nil)
		if err != nil {
			return nil, err
		}
		out.Turn = result

	case ActionBuyProperty:
		var p propertyPayload
		if err := decodeData(decision, &p); err != nil {
			return nil, err
		}
		if p.PropertyID == 0 {
			return nil, apperrors.New(apperrors.ErrInvalidParam, "缺少property_id")
		}
		effects, err := d.engine.BuyProperty(ctx, gameID, playerID, p.PropertyID)
		if err != nil {
			return nil, err
		}
		out.Effects = effects

	case ActionEndTurn:
		next, err := d.engine.EndTurn(ctx, gameID, playerID)
		if err != nil {
			return nil, err
		}
		out.NextPlayer = next

	case ActionProposeTrade:
		var p proposeTradePayload
		if err := decodeData(decision, &p); err != nil {
			return nil, err
		}
		trade, err := d.engine.ProposeTrade(ctx, gameID, playerID, p.ToPlayerID, p.Offer, p.Request)
		if err != nil {
			return nil, err
		}
		out.Trade = trade

	case ActionRespondTrade:
		var p respondTradePayload
		if err := decodeData(decision, &p); err != nil {
			return nil, err
		}
		if p.TradeID == 0 {
			return nil, apperrors.New(apperrors.ErrInvalidParam, "缺少trade_id")
		}
		trade, err := d.engine.RespondTrade(ctx, p.TradeID, playerID, p.Decision, p.Counter)
		if err != nil {
			return nil, err
		}
		out.Trade = trade

	case ActionActivatePerk:
		var p activatePerkPayload
		if err := decodeData(decision, &p); err != nil {
			return nil, err
		}
		effects, err := d.engine.ActivatePerk(ctx, gameID, playerID, p.Kind, p.Params)
		if err != nil {
			return nil, err
		}
		out.Effects = effects

	case ActionDeclareBankruptcy:
		result, err := d.engine.DeclareBankruptcy(ctx, gameID, playerID)
		if err != nil {
			return nil, err
		}
		out.Bankruptcy = result

	case ActionMortgage:
		var p propertyPayload
		if err := decodeData(decision, &p); err != nil {
			return nil, err
		}
		effects, err := d.engine.Mortgage(ctx, gameID, playerID, p.PropertyID)
		if err != nil {
			return nil, err
		}
		out.Effects = effects

	case ActionUnmortgage:
		var p propertyPayload
		if err := decodeData(decision, &p); err != nil {
			return nil, err
		}
		effects, err := d.engine.Unmortgage(ctx, gameID, playerID, p.PropertyID)
		if err != nil {
			return nil, err
		}
		out.Effects = effects

	case ActionSettleDebt:
		effects, err := d.engine.SettleDebt(ctx, gameID, playerID)
		if err != nil {
			return nil, err
		}
		out.Effects = effects

	case ActionPayJailFine:
		if err := d.engine.PayJailFine(ctx, gameID, playerID); err != nil {
			return nil, err
		}

	case ActionUseJailCard:
		if err := d.engine.UseJailCard(ctx, gameID, playerID); err != nil {
			return nil, err
		}

	default:
		return nil, apperrors.Newf(apperrors.ErrInvalidParam, "未知的动作类型: %s", decision.Type)
	}

	return out, nil
}
