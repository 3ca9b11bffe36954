package agent

import (
	"encoding/json"
	"strings"

	apperrors "github.com/wfunc/tycoon-game/internal/errors"
)

// 代理可用的动作类型
const (
	ActionRoll              = "roll"
	ActionBuyProperty       = "buy_property"
	ActionEndTurn           = "end_turn"
	ActionProposeTrade      = "propose_trade"
	ActionRespondTrade      = "respond_trade"
	ActionActivatePerk      = "activate_perk"
	ActionDeclareBankruptcy = "declare_bankruptcy"
	ActionMortgage          = "mortgage"
	ActionUnmortgage        = "unmortgage"
	ActionSettleDebt        = "settle_debt"
	ActionPayJailFine       = "pay_jail_fine"
	ActionUseJailCard       = "use_jail_card"
)

var knownActions = map[string]bool{
	ActionRoll:              true,
	ActionBuyProperty:       true,
	ActionEndTurn:           true,
	ActionProposeTrade:      true,
	ActionRespondTrade:      true,
	ActionActivatePerk:      true,
	ActionDeclareBankruptcy: true,
	ActionMortgage:          true,
	ActionUnmortgage:        true,
	ActionSettleDebt:        true,
	ActionPayJailFine:       true,
	ActionUseJailCard:       true,
}

// Decision AI提供商返回的固定决策信封
// data按type解码；reasoning只入日志，confidence裁剪到[0,1]。
// 代理声称的合法性不被信任，动作照常走引擎的全部校验。
type Decision struct {
	Type       string          `json:"type"`
	Data       json.RawMessage `json:"data"`
	Reasoning  string          `json:"reasoning"`
	Confidence float64         `json:"confidence"`
}

// ParseDecision 解析并校验决策信封
func ParseDecision(raw []byte) (*Decision, error) {
	var d Decision
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInvalidParam, "决策信封不是合法JSON")
	}

	d.Type = strings.ToLower(strings.TrimSpace(d.Type))
	if !knownActions[d.Type] {
		return nil, apperrors.Newf(apperrors.ErrInvalidParam, "未知的动作类型: %s", d.Type)
	}

	// 置信度裁剪到[0,1]
	if d.Confidence < 0 {
		d.Confidence = 0
	} else if d.Confidence > 1 {
		d.Confidence = 1
	}

	return &d, nil
}

// decodeData 解码data载荷；载荷缺失时按空对象处理
func decodeData(d *Decision, dst interface{}) error {
	if len(d.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(d.Data, dst); err != nil {
		return apperrors.Wrapf(err, apperrors.ErrInvalidParam, "动作%s的载荷格式错误", d.Type)
	}
	return nil
}
