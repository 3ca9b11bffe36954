package game

import (
	"context"

	apperrors "github.com/wfunc/tycoon-game/internal/errors"
	"github.com/wfunc/tycoon-game/internal/models"
	"github.com/wfunc/tycoon-game/internal/repository"
	"go.uber.org/zap"
)

// GrantPerk 发放特权（对局奖励、活动发放等入口）
func (e *Engine) GrantPerk(ctx context.Context, gameID, playerID uint, kind string) (*models.GamePlayerPerk, error) {
	if !validPerkKind(kind) {
		return nil, apperrors.Newf(apperrors.ErrInvalidParam, "未知的特权种类: %s", kind)
	}

	var perk *models.GamePlayerPerk
	err := e.txMgr.WithTransaction(ctx, func(tx *repository.Transaction) error {
		if _, err := loadRunningGame(ctx, tx, gameID); err != nil {
			return err
		}
		if _, err := requirePlayerActive(ctx, tx, gameID, playerID); err != nil {
			return err
		}

		perk = &models.GamePlayerPerk{
			GameID:       gameID,
			GamePlayerID: playerID,
			Kind:         kind,
		}
		return tx.Perk().Grant(ctx, perk)
	})
	if err != nil {
		return nil, err
	}
	return perk, nil
}

// validPerkKind 特权种类是否合法
func validPerkKind(kind string) bool {
	switch kind {
	case models.PerkExtraTurn, models.PerkJailFree, models.PerkDoubleRent,
		models.PerkRollBoost, models.PerkInstantCash, models.PerkTeleport,
		models.PerkShield, models.PerkPropertyDiscount, models.PerkTaxRefund,
		models.PerkExactRoll:
		return true
	}
	return false
}

// ActivatePerk 激活特权
// 不可叠加的特权同类只允许一个处于激活态；立即生效的特权
// （传送、即时奖金、出狱）在激活的同一事务内应用效果并消耗。
// 其余特权进入激活态，等待对应时机被消耗。
func (e *Engine) ActivatePerk(ctx context.Context, gameID, playerID uint, kind string, params models.JSONMap) ([]Effect, error) {
	if !validPerkKind(kind) {
		return nil, apperrors.Newf(apperrors.ErrInvalidParam, "未知的特权种类: %s", kind)
	}

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

		// 找到一张未激活的目标特权
		held, err := e.findHeldPerk(ctx, tx, playerID, kind)
		if err != nil {
			return err
		}

		// 不可叠加特权的互斥校验
		if models.NonStackablePerks[kind] {
			if has, err := tx.Perk().HasActiveOfKind(ctx, playerID, kind); err != nil {
				return err
			} else if has {
				return apperrors.New(apperrors.ErrPerkConflict)
			}
		}

		if err := tx.Perk().Activate(ctx, held.ID, params); err != nil {
			return err
		}

		tc := newTurnContext(tx, game)
		tc.record(playerID, models.HistoryActionPerk, player.Position, player.Position, 0,
			map[string]interface{}{"kind": kind, "activated": true})

		// 立即生效的特权在同一事务内应用并消耗
		switch kind {
		case models.PerkTeleport:
			if err := e.applyTeleportPerk(ctx, tc, player, held.ID, params); err != nil {
				return err
			}
		case models.PerkInstantCash:
			if err := e.applyInstantCashPerk(ctx, tc, player, held.ID); err != nil {
				return err
			}
		case models.PerkJailFree:
			if err := e.applyJailFreePerk(ctx, tc, player, held.ID); err != nil {
				return err
			}
		}

		effects = tc.effects
		return tc.flush(ctx)
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("特权已激活",
		zap.Uint("game_id", gameID),
		zap.Uint("player_id", playerID),
		zap.String("kind", kind),
	)
	return effects, nil
}

// findHeldPerk 查找一张held状态的指定特权
func (e *Engine) findHeldPerk(ctx context.Context, tx *repository.Transaction, playerID uint, kind string) (*models.GamePlayerPerk, error) {
	perks, err := tx.Perk().ListByPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	for _, p := range perks {
		if p.Kind == kind && p.Status == models.PerkStatusHeld {
			return p, nil
		}
	}
	return nil, apperrors.New(apperrors.ErrPerkNotHeld)
}

// applyTeleportPerk 传送：直接落位，不经过中间地块，不发放经过GO奖励
// 传送只改变位置，不触发落地效果。
func (e *Engine) applyTeleportPerk(ctx context.Context, tc *turnContext, player *models.GamePlayer, perkID uint, params models.JSONMap) error {
	target := intFromParams(params, "position", -1)
	if target < 0 || target >= models.BoardSize {
		return apperrors.New(apperrors.ErrInvalidParam, "传送目标位置越界")
	}

	if err := e.teleportPlayer(ctx, tc, player, target); err != nil {
		return err
	}
	return tc.tx.Perk().Consume(ctx, perkID)
}

// applyInstantCashPerk 即时奖金：从固定档位表随机取一档发放
func (e *Engine) applyInstantCashPerk(ctx context.Context, tc *turnContext, player *models.GamePlayer, perkID uint) error {
	tiers := e.rules.InstantCashRewards
	if len(tiers) == 0 {
		return apperrors.New(apperrors.ErrConfigMissing, "未配置即时奖金档位")
	}
	reward := tiers[e.randIntn(len(tiers))]

	if err := tc.tx.Player().AddBalance(ctx, player.ID, reward); err != nil {
		return err
	}
	player.Balance += reward
	tc.record(player.ID, models.HistoryActionPerk, player.Position, player.Position, reward,
		map[string]interface{}{"kind": models.PerkInstantCash})
	return tc.tx.Perk().Consume(ctx, perkID)
}

// applyJailFreePerk 出狱特权：在监狱中立即出狱，否则激活无意义
func (e *Engine) applyJailFreePerk(ctx context.Context, tc *turnContext, player *models.GamePlayer, perkID uint) error {
	if !player.InJail {
		return apperrors.New(apperrors.ErrInvalidState, "玩家不在监狱中")
	}
	if err := e.releaseFromJail(ctx, tc, player, "perk"); err != nil {
		return err
	}
	return tc.tx.Perk().Consume(ctx, perkID)
}

// ListPerks 玩家的特权列表（只读）
func (e *Engine) ListPerks(ctx context.Context, playerID uint) ([]*models.GamePlayerPerk, error) {
	return e.perks.ListByPlayer(ctx, playerID)
}
