package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mlecanu/ilconto/internal/apperror"
	"github.com/mlecanu/ilconto/internal/model"
	"github.com/mlecanu/ilconto/internal/policy"
)

type addMemberRequest struct {
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
	Score    *int64 `json:"score,omitempty"`
}

type updateMemberRequest struct {
	Username string `json:"username,omitempty"`
	Score    *int64 `json:"score,omitempty"`
}

// HandleListMembers returns a board's members.
//
// HTTP: GET /api/boards/{boardID}/members
func (h *BoardHandler) HandleListMembers(w http.ResponseWriter, r *http.Request) {
	_, board, err := h.authorizedBoard(r)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, board.Members)
}

// HandleAddMember enrols an existing account on a board.
//
// HTTP: POST /api/boards/{boardID}/members
// BODY: {"email": "a@x.com", "username": "Alice", "score": 123}
//
// username defaults to the identity's own display name, score to now.
// Unknown emails are 404 here — inviting strangers goes through the board
// create/update endpoints, which provision accounts and send the email.
func (h *BoardHandler) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	_, board, err := h.authorizedBoard(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req addMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	member, err := h.boards.AddMemberByEmail(r.Context(), board.ID, req.Email, req.Username, req.Score)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, member)
}

// HandleGetMember returns one member record.
//
// HTTP: GET /api/boards/{boardID}/members/{memberID}
func (h *BoardHandler) HandleGetMember(w http.ResponseWriter, r *http.Request) {
	_, member, err := h.boardMember(r)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, member)
}

// HandleUpdateMember resets a member's score and/or renames them.
//
// HTTP: PUT /api/boards/{boardID}/members/{memberID}
// BODY: {"score": 1700000000, "username": "Alice"}
//
// Self-service only: mutating a member record requires owning the identity
// behind it. A member of the same board still gets 403 for someone else's
// record, and their score stays put.
func (h *BoardHandler) HandleUpdateMember(w http.ResponseWriter, r *http.Request) {
	caller, member, err := h.boardMember(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if !policy.CanMutateMembership(caller, member) {
		writeError(w, apperror.Forbidden("you may only modify your own member record"))
		return
	}

	var req updateMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	if req.Score != nil {
		if member, err = h.boards.ResetScore(r.Context(), member.BoardID, member.ID, req.Score); err != nil {
			writeError(w, err)
			return
		}
	}
	if req.Username != "" {
		if member, err = h.boards.UpdateMemberUsername(r.Context(), member.BoardID, member.ID, req.Username); err != nil {
			writeError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, member)
}

// HandleRemoveMember removes a member record. Self-service, like updates —
// leaving a board is fine, evicting someone else is not.
//
// HTTP: DELETE /api/boards/{boardID}/members/{memberID}
func (h *BoardHandler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	caller, member, err := h.boardMember(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if !policy.CanMutateMembership(caller, member) {
		writeError(w, apperror.Forbidden("you may only remove your own member record"))
		return
	}

	removedID, err := h.boards.RemoveMember(r.Context(), member.BoardID, member.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"id": removedID})
}

// boardMember resolves {boardID}/{memberID} with the board-level view check
// applied first.
func (h *BoardHandler) boardMember(r *http.Request) (*model.Identity, *model.Membership, error) {
	caller, board, err := h.authorizedBoard(r)
	if err != nil {
		return nil, nil, err
	}

	member, err := h.boards.GetMember(r.Context(), board.ID, chi.URLParam(r, "memberID"))
	if err != nil {
		return nil, nil, err
	}

	return caller, member, nil
}
