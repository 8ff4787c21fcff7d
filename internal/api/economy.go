package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/taskmint/taskmint/internal/domain"
)

// ─── Economy API ────────────────────────────────────────────────────────────
// POST /api/tasks                    — create a task (CRUD glue)
// GET  /api/tasks                    — list the user's tasks
// POST /api/tasks/{id}/complete      — claim-once completion + rollup
// POST /api/tasks/{id}/uncomplete    — status flip, ledger untouched
// POST /api/tasks/{id}/top3          — assign to today's Top3
// GET  /api/recipes                  — recipe catalog
// POST /api/recipes/{id}/redeem      — atomic consume+produce group
// GET  /api/points/balance           — derived balance
// GET  /api/points/history           — recent points ledger rows
// GET  /api/rewards/on-hand?reward=… — derived item quantity
// GET  /api/rewards/history          — recent reward ledger rows

// handleCreateTask creates a task, optionally under a parent.
// POST /api/tasks
func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title    string `json:"title"`
		ParentID string `json:"parent_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	uid := userID(r)
	if req.ParentID != "" {
		// Parent must exist and be the caller's. Keeps the hierarchy sane
		// before the rollup ever walks it.
		if _, err := s.db.GetTask(r.Context(), uid, req.ParentID); err != nil {
			s.writeEconomyError(w, err)
			return
		}
	}

	task := domain.Task{
		ID:        uuid.NewString(),
		UserID:    uid,
		ParentID:  req.ParentID,
		Title:     req.Title,
		Status:    domain.TaskPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.InsertTask(r.Context(), task); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// handleListTasks lists all of the user's tasks.
// GET /api/tasks
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.db.ListTasks(r.Context(), userID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tasks": tasks})
}

// handleCompleteTask completes a task and grants its one-time reward.
// An already-claimed task is a 200, not an error — the result says so.
// POST /api/tasks/{id}/complete
func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	task, result, err := s.engine.Complete(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeEconomyError(w, err)
		return
	}

	resp := map[string]interface{}{
		"task":              task,
		"completion_result": result,
	}
	if result.Lottery != nil {
		resp["lottery_result"] = result.Lottery
	}
	if task.ParentID != "" {
		// The rollup already ran; report the parent's fresh percentage.
		if parent, err := s.db.GetTask(r.Context(), userID(r), task.ParentID); err == nil {
			resp["parent_update"] = map[string]interface{}{
				"id":                    parent.ID,
				"completion_percentage": parent.CompletionPercentage,
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleUncompleteTask flips a task back to pending. Rewards stay.
// POST /api/tasks/{id}/uncomplete
func (s *Server) handleUncompleteTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.engine.Uncomplete(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeEconomyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"task":    task,
		"message": "task set back to pending; granted rewards are permanent",
	})
}

// handleAssignTop3 puts a task in today's privileged Top3 set.
// POST /api/tasks/{id}/top3
func (s *Server) handleAssignTop3(w http.ResponseWriter, r *http.Request) {
	task, err := s.engine.AssignTop3(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeEconomyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"task": task})
}

// handleListRecipes returns the recipe catalog.
// GET /api/recipes
func (s *Server) handleListRecipes(w http.ResponseWriter, r *http.Request) {
	recipes, err := s.db.ListRecipes(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if recipes == nil {
		recipes = []domain.Recipe{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"recipes": recipes})
}

// handleRedeemRecipe executes a recipe redemption. Insufficient
// materials come back as a 400 carrying the full shortfall list.
// POST /api/recipes/{id}/redeem
func (s *Server) handleRedeemRecipe(w http.ResponseWriter, r *http.Request) {
	result, err := s.crafter.Redeem(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		if im, ok := domain.IsInsufficientMaterials(err); ok {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"error":    "insufficient materials",
				"recipe":   im.RecipeID,
				"required": im.Required,
			})
			return
		}
		s.writeEconomyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":            true,
		"result_reward":      map[string]string{"id": result.ResultRewardID, "name": result.ResultRewardName},
		"materials_consumed": result.MaterialsConsumed,
		"transaction_group":  result.TransactionGroup,
	})
}

// handleBalance returns the derived point balance.
// GET /api/points/balance
func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := s.db.Balance(r.Context(), userID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"balance": balance})
}

// handlePointsHistory returns recent points ledger rows.
// GET /api/points/history?limit=N
func (s *Server) handlePointsHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.db.PointsHistory(r.Context(), userID(r), historyLimit(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if history == nil {
		history = []domain.PointsTransaction{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"transactions": history})
}

// handleOnHand returns the derived quantity of one reward.
// GET /api/rewards/on-hand?reward=ID
func (s *Server) handleOnHand(w http.ResponseWriter, r *http.Request) {
	rewardID := r.URL.Query().Get("reward")
	if rewardID == "" {
		writeError(w, http.StatusBadRequest, "reward query parameter is required")
		return
	}
	qty, err := s.db.OnHand(r.Context(), userID(r), rewardID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reward_id": rewardID,
		"on_hand":   qty,
	})
}

// handleRewardHistory returns recent reward ledger rows.
// GET /api/rewards/history?limit=N
func (s *Server) handleRewardHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.db.RewardHistory(r.Context(), userID(r), historyLimit(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if history == nil {
		history = []domain.RewardTransaction{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"transactions": history})
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// historyLimit parses ?limit, defaulting to 50 and capping at 500.
func historyLimit(r *http.Request) int {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 500 {
		limit = 500
	}
	return limit
}

// writeEconomyError maps engine errors onto status codes: missing or
// foreign resources are 404, exhausted retries are 409, Top3 overflow is
// 409, anything else is a 500.
func (s *Server) writeEconomyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrTaskNotFound),
		errors.Is(err, domain.ErrRecipeNotFound),
		errors.Is(err, domain.ErrRewardNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, "the operation conflicted with a concurrent update; retry")
	case errors.Is(err, domain.ErrTop3Full):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrHierarchyCycle):
		s.log.Error().Err(err).Msg("task hierarchy integrity failure")
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		s.log.Error().Err(err).Msg("economy operation failed")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
