package api

import (
	"io"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/tycoon-game/internal/agent"
	apperrors "github.com/wfunc/tycoon-game/internal/errors"
)

// AgentHandler AI代理动作入口
// 接收外部AI提供商产出的决策信封，代表代理玩家执行。
type AgentHandler struct {
	driver *agent.Driver
}

// NewAgentHandler 创建代理处理器
func NewAgentHandler(driver *agent.Driver) *AgentHandler {
	return &AgentHandler{driver: driver}
}

// queryUint 解析查询参数中的无符号整数
func queryUint(c *gin.Context, key string) (uint, bool) {
	v, err := strconv.ParseUint(c.Query(key), 10, 32)
	if err != nil || v == 0 {
		return 0, false
	}
	return uint(v), true
}

// ExecuteDecision 解析决策信封并以代理身份执行
func (h *AgentHandler) ExecuteDecision(c *gin.Context) {
	gid, valid := gameID(c)
	if !valid {
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		badRequest(c, err)
		return
	}

	decision, err := agent.ParseDecision(body)
	if err != nil {
		fail(c, err)
		return
	}

	// 代理的玩家身份来自查询参数，决策信封只描述动作
	playerID, found := queryUint(c, "player_id")
	if !found {
		fail(c, apperrors.New(apperrors.ErrInvalidParam, "缺少player_id"))
		return
	}

	outcome, err := h.driver.Execute(c.Request.Context(), gid, playerID, decision)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, outcome)
}
