package game

import (
	"context"

	apperrors "github.com/wfunc/tycoon-game/internal/errors"
	"github.com/wfunc/tycoon-game/internal/models"
	"github.com/wfunc/tycoon-game/internal/repository"
	"go.uber.org/zap"
)

// CreateGameInput createGame的请求参数
type CreateGameInput struct {
	Mode       string `json:"mode"`
	MaxPlayers int    `json:"max_players"`
}

// CreateGame 创建对局，创建者自动成为第一位玩家
func (e *Engine) CreateGame(ctx context.Context, creatorUserID uint, input CreateGameInput) (*models.Game, error) {
	mode := input.Mode
	if mode == "" {
		mode = models.GameModePublic
	}
	if mode != models.GameModePublic && mode != models.GameModePrivate {
		return nil, apperrors.Newf(apperrors.ErrInvalidParam, "未知的对局模式: %s", mode)
	}

	maxPlayers := input.MaxPlayers
	if maxPlayers == 0 {
		maxPlayers = e.rules.MaxPlayers
	}
	if maxPlayers < e.rules.MinPlayers || maxPlayers > e.rules.MaxPlayers {
		return nil, apperrors.Newf(apperrors.ErrInvalidParam,
			"玩家数上限须在%d-%d之间", e.rules.MinPlayers, e.rules.MaxPlayers)
	}

	var game *models.Game
	err := e.txMgr.WithTransaction(ctx, func(tx *repository.Transaction) error {
		game = &models.Game{
			JoinCode:   e.newJoinCode(),
			Mode:       mode,
			Status:     models.GameStatusPending,
			MaxPlayers: maxPlayers,
		}
		if err := tx.Game().Create(ctx, game); err != nil {
			return err
		}

		creator := &models.GamePlayer{
			GameID:    game.ID,
			UserID:    creatorUserID,
			Balance:   e.rules.StartingBalance,
			Position:  models.PositionGo,
			TurnOrder: 0,
			Token:     models.PlayerTokens[0],
		}
		return tx.Player().Create(ctx, creator)
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("对局已创建",
		zap.Uint("game_id", game.ID),
		zap.String("join_code", game.JoinCode),
		zap.Int("max_players", maxPlayers),
	)
	return game, nil
}

// JoinGame 通过加入码加入对局
// 人数达到上限时对局自动开局：状态转为RUNNING并指定首位回合玩家。
func (e *Engine) JoinGame(ctx context.Context, joinCode string, userID uint) (*models.GamePlayer, error) {
	var player *models.GamePlayer
	err := e.txMgr.WithTransaction(ctx, func(tx *repository.Transaction) error {
		game, err := tx.Game().FindByJoinCode(ctx, joinCode)
		if err != nil {
			return err
		}

		// 锁定对局行，并发加入串行化
		game, err = tx.Game().LockForUpdate(ctx, game.ID)
		if err != nil {
			return err
		}
		if game.Status != models.GameStatusPending {
			return apperrors.New(apperrors.ErrInvalidState, "对局已开始或已结束")
		}

		if existing, err := tx.Player().FindByGameAndUser(ctx, game.ID, userID); err == nil {
			player = existing
			return apperrors.New(apperrors.ErrAlreadyExists, "已在对局中")
		}

		count, err := tx.Player().CountByGame(ctx, game.ID)
		if err != nil {
			return err
		}
		if int(count) >= game.MaxPlayers {
			return apperrors.New(apperrors.ErrInvalidState, "对局人数已满")
		}

		player = &models.GamePlayer{
			GameID:    game.ID,
			UserID:    userID,
			Balance:   e.rules.StartingBalance,
			Position:  models.PositionGo,
			TurnOrder: int(count),
			Token:     models.PlayerTokens[int(count)%len(models.PlayerTokens)],
		}
		if err := tx.Player().Create(ctx, player); err != nil {
			return err
		}

		// 满员自动开局
		if int(count)+1 == game.MaxPlayers {
			return e.startGameLocked(ctx, tx, game)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return player, nil
}

// StartGame 提前开局（达到最低人数后由创建者触发）
func (e *Engine) StartGame(ctx context.Context, gameID uint) error {
	return e.txMgr.WithTransaction(ctx, func(tx *repository.Transaction) error {
		game, err := tx.Game().LockForUpdate(ctx, gameID)
		if err != nil {
			return err
		}
		if game.Status != models.GameStatusPending {
			return apperrors.New(apperrors.ErrInvalidState, "对局已开始或已结束")
		}

		count, err := tx.Player().CountByGame(ctx, game.ID)
		if err != nil {
			return err
		}
		if int(count) < e.rules.MinPlayers {
			return apperrors.Newf(apperrors.ErrInvalidState, "至少需要%d名玩家", e.rules.MinPlayers)
		}
		return e.startGameLocked(ctx, tx, game)
	})
}

// startGameLocked 在已锁定的对局上执行开局
func (e *Engine) startGameLocked(ctx context.Context, tx *repository.Transaction, game *models.Game) error {
	if err := tx.Game().UpdateStatus(ctx, game.ID, models.GameStatusPending, models.GameStatusRunning); err != nil {
		return err
	}

	players, err := tx.Player().ListActive(ctx, game.ID)
	if err != nil {
		return err
	}
	if len(players) == 0 {
		return apperrors.New(apperrors.ErrInvariantViolation, "开局时没有玩家")
	}
	if err := tx.Game().SetCurrentTurn(ctx, game.ID, players[0].ID); err != nil {
		return err
	}

	e.log.Info("对局开始",
		zap.Uint("game_id", game.ID),
		zap.Int("players", len(players)),
	)
	return nil
}

// CancelGame 取消尚未结束的对局
func (e *Engine) CancelGame(ctx context.Context, gameID uint) error {
	return e.txMgr.WithTransaction(ctx, func(tx *repository.Transaction) error {
		game, err := tx.Game().LockForUpdate(ctx, gameID)
		if err != nil {
			return err
		}
		if game.IsTerminal() {
			return apperrors.New(apperrors.ErrGameTerminal)
		}
		return tx.Game().UpdateStatus(ctx, game.ID, game.Status, models.GameStatusCancelled)
	})
}

// Snapshot 对局状态快照（AI提示词与前端刷新共用）
type Snapshot struct {
	Game       *models.Game             `json:"game"`
	Players    []*models.GamePlayer     `json:"players"`
	Ownerships []*models.GameProperty   `json:"ownerships"`
	Trades     []*models.GameTrade      `json:"pending_trades"`
	History    []*models.GamePlayHistory `json:"recent_history"`
}

// GetSnapshot 读取对局快照（只读，无事务）
func (e *Engine) GetSnapshot(ctx context.Context, gameID uint) (*Snapshot, error) {
	game, err := e.games.FindByID(ctx, gameID)
	if err != nil {
		return nil, err
	}

	players, err := e.players.ListByGame(ctx, gameID)
	if err != nil {
		return nil, err
	}

	ownerships, err := e.properties.ListByGame(ctx, gameID)
	if err != nil {
		return nil, err
	}

	trades, err := e.trades.ListByGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	pending := make([]*models.GameTrade, 0, len(trades))
	for _, t := range trades {
		if !t.IsTerminal() {
			pending = append(pending, t)
		}
	}

	p := repository.NewPagination(1, 20)
	history, err := e.histories.ListByGame(ctx, gameID, p)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		Game:       game,
		Players:    players,
		Ownerships: ownerships,
		Trades:     pending,
		History:    history,
	}, nil
}
