// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package invites

import (
	"context"
	"errors"
	"fmt"

	"github.com/danielhkuo/movienight/apperr"
	"github.com/danielhkuo/movienight/models"
	"github.com/danielhkuo/movienight/store"
)

type TreeNode struct {
	Voter       models.Voter        `json:"voter"`
	DisplayName string              `json:"display_name"`
	Codes       []models.InviteCode `json:"codes"`
	Children    []*TreeNode         `json:"children"`
}

// Tree is the session's invite forest. Roots joined through admin codes;
// Orphans are voters whose inviter has been removed.
type Tree struct {
	SessionID  string              `json:"session_id"`
	Roots      []*TreeNode         `json:"roots"`
	RootCodes  []models.InviteCode `json:"root_codes"`
	Orphans    []*TreeNode         `json:"orphans"`
	VoterCount int                 `json:"voter_count"`
}

// BuildTree reads the session's voters and codes and folds them into a Tree.
func (s *Service) BuildTree(ctx context.Context, sessionID string) (*Tree, error) {
	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound(apperr.CodeSessionNotFound, "Session not found")
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	voters, err := s.store.ListVoters(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	codes, err := s.store.ListCodes(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return buildTree(sessionID, voters, codes), nil
}

// buildTree expects voters in join order, which keeps siblings in join order.
func buildTree(sessionID string, voters []models.Voter, codes []models.InviteCode) *Tree {
	t := &Tree{
		SessionID:  sessionID,
		Roots:      []*TreeNode{},
		RootCodes:  []models.InviteCode{},
		Orphans:    []*TreeNode{},
		VoterCount: len(voters),
	}

	nodes := make(map[string]*TreeNode, len(voters))
	for _, v := range voters {
		nodes[v.ID] = &TreeNode{
			Voter:       v,
			DisplayName: v.Name(),
			Codes:       []models.InviteCode{},
			Children:    []*TreeNode{},
		}
	}

	for _, c := range codes {
		if c.CreatedByVoterID == nil {
			t.RootCodes = append(t.RootCodes, c)
			continue
		}
		if n, ok := nodes[*c.CreatedByVoterID]; ok {
			n.Codes = append(n.Codes, c)
		}
	}

	for _, v := range voters {
		n := nodes[v.ID]
		switch {
		case v.InvitedBy == nil:
			t.Roots = append(t.Roots, n)
		case nodes[*v.InvitedBy] != nil:
			parent := nodes[*v.InvitedBy]
			parent.Children = append(parent.Children, n)
		default:
			t.Orphans = append(t.Orphans, n)
		}
	}
	return t
}
