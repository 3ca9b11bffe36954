package game

import (
	"context"

	apperrors "github.com/wfunc/tycoon-game/internal/errors"
	"github.com/wfunc/tycoon-game/internal/models"
	"github.com/wfunc/tycoon-game/internal/repository"
	"go.uber.org/zap"
)

// BankruptcyResult declareBankruptcy的返回载荷
type BankruptcyResult struct {
	GameOver bool  `json:"game_over"`
	WinnerID *uint `json:"winner_id,omitempty"`
}

// DeclareBankruptcy 宣告破产
// 清算是多行原子操作：释放全部地块、废弃未成交交易、移出轮转、
// 必要时判定终局，全部在一个事务内完成。
func (e *Engine) DeclareBankruptcy(ctx context.Context, gameID, playerID uint) (*BankruptcyResult, error) {
	var result *BankruptcyResult
	err := e.txMgr.WithTransaction(ctx, func(tx *repository.Transaction) error {
		game, err := loadRunningGame(ctx, tx, gameID)
		if err != nil {
			return err
		}
		player, err := requirePlayerActive(ctx, tx, gameID, playerID)
		if err != nil {
			return err
		}

		tc := newTurnContext(tx, game)

		// 释放全部地块（归为无主，可被重新购入）
		released, err := tx.Property().ReleaseAllByOwner(ctx, gameID, playerID)
		if err != nil {
			return err
		}

		// 废弃该玩家参与的未成交交易
		if err := e.voidPendingTrades(ctx, tx, gameID, playerID); err != nil {
			return err
		}

		// 标记破产并移出轮转（条件更新，二次破产被拒绝）
		if err := tx.Player().MarkBankrupt(ctx, playerID); err != nil {
			return err
		}

		tc.record(playerID, models.HistoryActionBankrupt, player.Position, player.Position,
			-player.Balance,
			map[string]interface{}{"properties_released": released})

		// 破产者正持有行动权时立即移交
		if game.CurrentTurnID != nil && *game.CurrentTurnID == playerID {
			next, err := e.nextActivePlayer(ctx, tx, gameID, playerID)
			if err != nil {
				return err
			}
			if err := tx.Game().SetCurrentTurn(ctx, gameID, next.ID); err != nil {
				return err
			}
		}

		// 只剩一名玩家时终局
		remaining, err := tx.Player().ListActive(ctx, gameID)
		if err != nil {
			return err
		}
		result = &BankruptcyResult{}
		if len(remaining) == 1 {
			winner := remaining[0]
			if err := tx.Game().SetWinner(ctx, gameID, winner.ID); err != nil {
				return err
			}
			if err := tx.Game().UpdateStatus(ctx, gameID, models.GameStatusRunning, models.GameStatusFinished); err != nil {
				return err
			}
			result.GameOver = true
			result.WinnerID = &winner.ID

			tc.record(winner.ID, models.HistoryActionGameOver, winner.Position, winner.Position, 0,
				map[string]interface{}{"winner_id": winner.ID})
		} else if len(remaining) == 0 {
			return apperrors.New(apperrors.ErrInvariantViolation, "破产后没有存活玩家")
		}

		return tc.flush(ctx)
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("玩家破产",
		zap.Uint("game_id", gameID),
		zap.Uint("player_id", playerID),
		zap.Bool("game_over", result.GameOver),
	)
	return result, nil
}

// voidPendingTrades 将玩家参与的全部PENDING交易标记为REJECTED
func (e *Engine) voidPendingTrades(ctx context.Context, tx *repository.Transaction, gameID, playerID uint) error {
	trades, err := tx.Trade().ListByGame(ctx, gameID)
	if err != nil {
		return err
	}
	for _, t := range trades {
		if t.IsTerminal() {
			continue
		}
		if t.FromPlayerID == playerID || t.ToPlayerID == playerID {
			if err := tx.Trade().UpdateStatusIfPending(ctx, t.ID, models.TradeStatusRejected); err != nil {
				return err
			}
		}
	}
	return nil
}
