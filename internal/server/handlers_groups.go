package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/splitledger/splitledger/internal/models"
)

type createGroupRequest struct {
	Name    string             `json:"name"`
	Members []models.MemberRef `json:"members"`
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())

	var req createGroupRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	members, err := s.ledger.ResolveMembers(r.Context(), req.Members)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	group := &models.Group{
		Name:      req.Name,
		Members:   append([]models.MemberRef{actor}, members...),
		CreatedBy: actor,
	}
	if err := s.store.CreateGroup(r.Context(), group); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGroupView(group))
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())

	groups, err := s.store.ListGroupsByMember(r.Context(), actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	views := make([]groupView, 0, len(groups))
	for _, g := range groups {
		views = append(views, toGroupView(g))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	group, err := s.memberGroup(w, r)
	if group == nil || err != nil {
		return
	}
	writeJSON(w, http.StatusOK, toGroupView(group))
}

type addMembersRequest struct {
	Members []models.MemberRef `json:"members"`
}

func (s *Server) handleAddMembers(w http.ResponseWriter, r *http.Request) {
	group, err := s.memberGroup(w, r)
	if group == nil || err != nil {
		return
	}

	var req addMembersRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	members, err := s.ledger.ResolveMembers(r.Context(), req.Members)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := s.store.AddGroupMembers(r.Context(), group.ID, members); err != nil {
		writeDomainError(w, err)
		return
	}

	group, err = s.store.GetGroup(r.Context(), group.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupView(group))
}

// memberGroup loads the routed group and checks the actor belongs to it.
// On failure it writes the error response and returns nil.
func (s *Server) memberGroup(w http.ResponseWriter, r *http.Request) (*models.Group, error) {
	groupID := chi.URLParam(r, "groupID")
	group, err := s.store.GetGroup(r.Context(), groupID)
	if err != nil {
		writeDomainError(w, err)
		return nil, err
	}
	if !group.HasMember(actorFromContext(r.Context())) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "you are not a member of this group"})
		return nil, nil
	}
	return group, nil
}
