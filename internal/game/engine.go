package game

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wfunc/tycoon-game/internal/config"
	apperrors "github.com/wfunc/tycoon-game/internal/errors"
	"github.com/wfunc/tycoon-game/internal/logger"
	"github.com/wfunc/tycoon-game/internal/models"
	"github.com/wfunc/tycoon-game/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Engine 游戏引擎
// 所有对局状态变更的唯一入口。每个操作在一个事务内完成校验与写入，
// 失败时整体回滚，调用方看到的是操作前的完整状态。
type Engine struct {
	db    *gorm.DB
	txMgr repository.TransactionManager

	// 只读路径使用的仓储（非事务）
	games      repository.GameRepository
	players    repository.GamePlayerRepository
	properties repository.GamePropertyRepository
	trades     repository.GameTradeRepository
	perks      repository.PerkRepository
	histories  repository.HistoryRepository

	rules *config.Game
	log   *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewEngine 创建游戏引擎
func NewEngine(db *gorm.DB, rules *config.Game) *Engine {
	if rules == nil {
		rules = config.DefaultGame()
	}
	return &Engine{
		db:         db,
		txMgr:      repository.NewTransactionManager(db),
		games:      repository.NewGameRepository(db),
		players:    repository.NewGamePlayerRepository(db),
		properties: repository.NewGamePropertyRepository(db),
		trades:     repository.NewGameTradeRepository(db),
		perks:      repository.NewPerkRepository(db),
		histories:  repository.NewHistoryRepository(db),
		rules:      rules,
		log:        logger.GetModuleLogger("game"),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// DiceRoll 一次掷骰结果
type DiceRoll struct {
	D1 int `json:"d1"`
	D2 int `json:"d2"`
}

// Total 两骰点数和
func (d DiceRoll) Total() int {
	return d.D1 + d.D2
}

// IsDouble 是否掷出双数
func (d DiceRoll) IsDouble() bool {
	return d.D1 == d.D2
}

// Valid 两骰均在1-6
func (d DiceRoll) Valid() bool {
	return d.D1 >= 1 && d.D1 <= 6 && d.D2 >= 1 && d.D2 <= 6
}

// Effect 一次已应用的效果（操作返回值中的流水摘要）
type Effect struct {
	Action      string                 `json:"action"`
	Amount      int64                  `json:"amount,omitempty"`
	OldPosition int                    `json:"old_position,omitempty"`
	NewPosition int                    `json:"new_position,omitempty"`
	Detail      map[string]interface{} `json:"detail,omitempty"`
}

// PurchaseOffer 落在无主地块时给调用方的购地要约
type PurchaseOffer struct {
	PropertyID uint   `json:"property_id"`
	Name       string `json:"name"`
	Position   int    `json:"position"`
	Price      int64  `json:"price"` // 已计入购地折扣特权
}

// TurnResult takeTurn的返回载荷
type TurnResult struct {
	NewPosition   int            `json:"new_position"`
	Effects       []Effect       `json:"effects"`
	PurchaseOffer *PurchaseOffer `json:"purchase_offer,omitempty"`
	InJail        bool           `json:"in_jail"`
	TraceID       string         `json:"trace_id"`
}

// turnContext 单次操作内共享的事务上下文
// 累积流水与效果摘要，提交前一次性落库，保证流水与效果同事务提交。
type turnContext struct {
	tx      *repository.Transaction
	game    *models.Game
	traceID string
	effects []Effect
	history []*models.GamePlayHistory
}

func newTurnContext(tx *repository.Transaction, game *models.Game) *turnContext {
	return &turnContext{
		tx:      tx,
		game:    game,
		traceID: uuid.NewString(),
	}
}

// record 记录一条效果及其流水
func (tc *turnContext) record(playerID uint, action string, oldPos, newPos int, amount int64, extra map[string]interface{}) {
	tc.effects = append(tc.effects, Effect{
		Action:      action,
		Amount:      amount,
		OldPosition: oldPos,
		NewPosition: newPos,
		Detail:      extra,
	})
	tc.history = append(tc.history, &models.GamePlayHistory{
		GameID:       tc.game.ID,
		GamePlayerID: playerID,
		Action:       action,
		OldPosition:  oldPos,
		NewPosition:  newPos,
		Amount:       amount,
		TraceID:      tc.traceID,
		Extra:        extra,
	})
}

// flush 将累积的流水写入事务
func (tc *turnContext) flush(ctx context.Context) error {
	return tc.tx.History().AppendBatch(ctx, tc.history)
}

// RollDice 引擎掷骰（调用方未提供骰点时使用）
func (e *Engine) RollDice() DiceRoll {
	e.mu.Lock()
	defer e.mu.Unlock()
	return DiceRoll{D1: e.rng.Intn(6) + 1, D2: e.rng.Intn(6) + 1}
}

// randIntn 并发安全的随机数
func (e *Engine) randIntn(n int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Intn(n)
}

// newJoinCode 生成6位加入码
func (e *Engine) newJoinCode() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return id[:6]
}

// FindPlayer 按用户查找其在对局中的玩家身份（只读）
func (e *Engine) FindPlayer(ctx context.Context, gameID, userID uint) (*models.GamePlayer, error) {
	return e.players.FindByGameAndUser(ctx, gameID, userID)
}

// ListGames 按状态分页列出对局（只读）
func (e *Engine) ListGames(ctx context.Context, status string, p *repository.Pagination) ([]*models.Game, error) {
	return e.games.ListByStatus(ctx, status, p)
}

// loadRunningGame 锁定对局并校验处于进行中
func loadRunningGame(ctx context.Context, tx *repository.Transaction, gameID uint) (*models.Game, error) {
	game, err := tx.Game().LockForUpdate(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game.IsTerminal() {
		return nil, apperrors.New(apperrors.ErrGameTerminal)
	}
	if game.Status != models.GameStatusRunning {
		return nil, apperrors.New(apperrors.ErrInvalidState, "对局尚未开始")
	}
	return game, nil
}

// requireCurrentTurn 校验操作者为当前回合玩家
func requireCurrentTurn(game *models.Game, playerID uint) error {
	if game.CurrentTurnID == nil || *game.CurrentTurnID != playerID {
		return apperrors.New(apperrors.ErrNotYourTurn)
	}
	return nil
}

// requirePlayerActive 加载玩家并校验归属与未破产
func requirePlayerActive(ctx context.Context, tx *repository.Transaction, gameID, playerID uint) (*models.GamePlayer, error) {
	player, err := tx.Player().LockForUpdate(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if player.GameID != gameID {
		return nil, apperrors.New(apperrors.ErrNotFound, "玩家不属于该对局")
	}
	if player.IsBankrupt {
		return nil, apperrors.New(apperrors.ErrInvalidState, "玩家已破产")
	}
	return player, nil
}
