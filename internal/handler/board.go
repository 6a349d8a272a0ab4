package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mlecanu/ilconto/internal/apperror"
	"github.com/mlecanu/ilconto/internal/auth"
	"github.com/mlecanu/ilconto/internal/model"
	"github.com/mlecanu/ilconto/internal/policy"
	"github.com/mlecanu/ilconto/internal/repository"
	"github.com/mlecanu/ilconto/internal/service"
)

// BoardHandler manages board CRUD and the bulk member reconciliation
// endpoints. All routes sit behind RequireAuth; per-board access is decided
// here with the policy predicates before any service call.
type BoardHandler struct {
	boards      *service.BoardService
	invites     *service.InviteService
	authService *service.AuthService
	logger      *slog.Logger
}

// NewBoardHandler creates a BoardHandler.
func NewBoardHandler(boards *service.BoardService, invites *service.InviteService, authService *service.AuthService, logger *slog.Logger) *BoardHandler {
	return &BoardHandler{
		boards:      boards,
		invites:     invites,
		authService: authService,
		logger:      logger,
	}
}

type createBoardRequest struct {
	Title   string                     `json:"title"`
	Members []service.MemberDescriptor `json:"members"`
}

type updateBoardRequest struct {
	Title   string                      `json:"title,omitempty"`
	Members *[]service.MemberDescriptor `json:"members,omitempty"` // nil = leave membership untouched
}

type memberFailureResponse struct {
	Email string `json:"email"`
	Error string `json:"error"`
}

type updateBoardResponse struct {
	*model.Board
	Failures []memberFailureResponse `json:"failures,omitempty"`
}

// caller loads the full identity record for the authenticated request.
// The middleware guarantees an identityID is present; a lookup miss here
// means the account was deleted mid-session.
func (h *BoardHandler) caller(r *http.Request) (*model.Identity, error) {
	identityID, ok := auth.IdentityIDFromContext(r.Context())
	if !ok {
		return nil, apperror.Forbidden("authentication required")
	}
	return h.authService.GetByID(r.Context(), identityID)
}

// HandleList returns the boards visible to the caller.
//
// HTTP: GET /api/boards?limit=20&offset=0
//
// Staff see every board; everyone else sees the boards they belong to.
func (h *BoardHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	caller, err := h.caller(r)
	if err != nil {
		writeError(w, err)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	boards, err := h.boards.ListForCaller(r.Context(), caller, repository.ListOptions{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, boards)
}

// HandleCreate creates a board with an initial member list.
//
// HTTP: POST /api/boards
// BODY: {"title": "Trip", "members": [{"email": "a@x.com", "score": 123}, ...]}
//
// The caller is always folded into the member list. Unknown emails get a
// provisioned account and an invitation email. All-or-nothing: a bad
// descriptor fails the whole request and nothing is created.
func (h *BoardHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	caller, err := h.caller(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req createBoardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	board, err := h.invites.CreateBoard(r.Context(), caller, req.Title, req.Members)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, board)
}

// HandleGet returns one board with its members.
//
// HTTP: GET /api/boards/{boardID}
func (h *BoardHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	_, board, err := h.authorizedBoard(r)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, board)
}

// HandleUpdate renames a board and/or reconciles its member list.
//
// HTTP: PUT /api/boards/{boardID}
// BODY: {"title": "...", "members": [...]}
//
// Omitting "members" leaves the membership untouched; supplying it (even
// empty) reconciles the board against it. Member-level failures don't abort
// the rest of the update — they come back in "failures".
func (h *BoardHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	caller, board, err := h.authorizedBoard(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req updateBoardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	if req.Title != "" {
		if board, err = h.boards.UpdateTitle(r.Context(), board.ID, req.Title); err != nil {
			writeError(w, err)
			return
		}
	}

	var failures []service.MemberFailure
	if req.Members != nil {
		board, failures, err = h.invites.UpdateMembers(r.Context(), caller, board.ID, *req.Members)
		if err != nil {
			writeError(w, err)
			return
		}
	}

	resp := updateBoardResponse{Board: board}
	for _, f := range failures {
		resp.Failures = append(resp.Failures, memberFailureResponse{Email: f.Email, Error: f.Message()})
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleDelete removes a board and, by cascade, all its memberships.
//
// HTTP: DELETE /api/boards/{boardID}
func (h *BoardHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	_, board, err := h.authorizedBoard(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.boards.Delete(r.Context(), board.ID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// authorizedBoard loads the caller and the addressed board and enforces the
// view/edit policy: staff, or a membership on the board.
func (h *BoardHandler) authorizedBoard(r *http.Request) (*model.Identity, *model.Board, error) {
	caller, err := h.caller(r)
	if err != nil {
		return nil, nil, err
	}

	board, err := h.boards.Get(r.Context(), chi.URLParam(r, "boardID"))
	if err != nil {
		return nil, nil, err
	}

	if !policy.CanViewOrEditBoard(caller, board.Members) {
		return nil, nil, apperror.Forbidden("you are not a member of this board")
	}

	return caller, board, nil
}
