package tools

import (
	"context"
	"fmt"

	"github.com/kindredcare/kindred/models"
	"github.com/kindredcare/kindred/stores"
)

// Tools touching per-child data resolve access through the Authorizer as
// their first internal step. A denial comes back as a plain error, which the
// executor converts into an unsuccessful result; the loop keeps going.

// GetChildTool returns the read-only child profile lookup tool.
func GetChildTool(store stores.FamilyStore, authz stores.Authorizer) Tool {
	return Tool{
		Name:        "get_child",
		Description: "Fetch a child's profile: name, birth date, diagnosis, and care notes.",
		Kind:        KindReadOnly,
		InputSchema: models.Schema{
			Type: "object",
			Properties: map[string]models.Property{
				"child_id": {
					Type:        "string",
					Description: "Identifier of the child to look up",
				},
			},
			Required: []string{"child_id"},
		},
		Execute: func(ctx context.Context, input map[string]any, tc ToolContext) (any, error) {
			childID, _ := input["child_id"].(string)
			if err := authz.VerifyChildAccess(ctx, tc.UserID, childID); err != nil {
				return nil, fmt.Errorf("unauthorized: %w", err)
			}
			return store.GetChild(ctx, childID)
		},
	}
}

// ListChildrenTool returns the read-only tool listing the children the
// calling caregiver belongs to. The result set is membership-filtered by
// construction, so no per-child check is needed.
func ListChildrenTool(store stores.FamilyStore) Tool {
	return Tool{
		Name:        "list_children",
		Description: "List the children in the caller's families.",
		Kind:        KindReadOnly,
		InputSchema: models.Schema{
			Type:       "object",
			Properties: map[string]models.Property{},
		},
		Execute: func(ctx context.Context, input map[string]any, tc ToolContext) (any, error) {
			return store.ListChildrenForCaregiver(ctx, tc.UserID)
		},
	}
}

// ListSessionsTool returns the read-only therapy session history tool.
func ListSessionsTool(store stores.FamilyStore, authz stores.Authorizer) Tool {
	return Tool{
		Name:        "list_sessions",
		Description: "List a child's therapy sessions, most recent first.",
		Kind:        KindReadOnly,
		InputSchema: models.Schema{
			Type: "object",
			Properties: map[string]models.Property{
				"child_id": {
					Type:        "string",
					Description: "Identifier of the child",
				},
				"limit": {
					Type:        "integer",
					Description: "Maximum number of sessions to return (default 10)",
				},
			},
			Required: []string{"child_id"},
		},
		Execute: func(ctx context.Context, input map[string]any, tc ToolContext) (any, error) {
			childID, _ := input["child_id"].(string)
			if err := authz.VerifyChildAccess(ctx, tc.UserID, childID); err != nil {
				return nil, fmt.Errorf("unauthorized: %w", err)
			}
			limit := 10
			if n, ok := input["limit"].(float64); ok && n > 0 {
				limit = int(n)
			}
			return store.ListTherapySessions(ctx, childID, limit)
		},
	}
}

// LogObservationTool returns the mutating tool recording a caregiver
// observation about a child.
func LogObservationTool(store stores.FamilyStore, authz stores.Authorizer) Tool {
	return Tool{
		Name:        "log_observation",
		Description: "Record an observation about a child (sleep, behavior, milestone, or general note).",
		Kind:        KindMutating,
		InputSchema: models.Schema{
			Type: "object",
			Properties: map[string]models.Property{
				"child_id": {
					Type:        "string",
					Description: "Identifier of the child",
				},
				"note": {
					Type:        "string",
					Description: "The observation text",
				},
				"category": {
					Type:        "string",
					Description: "Observation category",
					Enum:        []string{"sleep", "behavior", "milestone", "general"},
				},
			},
			Required: []string{"child_id", "note"},
		},
		Execute: func(ctx context.Context, input map[string]any, tc ToolContext) (any, error) {
			childID, _ := input["child_id"].(string)
			if err := authz.VerifyChildAccess(ctx, tc.UserID, childID); err != nil {
				return nil, fmt.Errorf("unauthorized: %w", err)
			}
			note, _ := input["note"].(string)
			category, _ := input["category"].(string)
			if category == "" {
				category = "general"
			}
			return store.CreateObservation(ctx, childID, tc.UserID, category, note)
		},
	}
}

// FamilyTools returns the standard tool set for the conversation engine.
func FamilyTools(store stores.FamilyStore, authz stores.Authorizer) []Tool {
	return []Tool{
		GetChildTool(store, authz),
		ListChildrenTool(store),
		ListSessionsTool(store, authz),
		LogObservationTool(store, authz),
	}
}
