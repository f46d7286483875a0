// Package roles derives the semantic role of each node from its declared
// tags. Classification is a pure function of declared data: a node is a
// sanitizer because the front end tagged it as one, never because its name
// looks protective.
package roles

import (
	"fmt"
	"log/slog"

	"github.com/sinkscope/sinkscope/pkg/models"
)

// UnknownRoleError reports a role tag outside the known set. Classification
// fails closed: the tag contributes no role and the error surfaces as a
// report warning, so an unrecognized tag can never count as protective.
type UnknownRoleError struct {
	NodeID string
	Tag    string
}

func (e *UnknownRoleError) Error() string {
	return fmt.Sprintf("node %q declares unknown role tag %q; treated as no role", e.NodeID, e.Tag)
}

// Classification is the resolved role of one node.
type Classification struct {
	Role     models.Role
	Strength models.Strength
	Protects string
}

// Classifier resolves declared role tags into node roles.
type Classifier struct {
	logger *slog.Logger
}

// NewClassifier creates a new role classifier.
func NewClassifier(logger *slog.Logger) *Classifier {
	return &Classifier{logger: logger}
}

// Classify derives a node's role from its declared tags. The first
// recognized tag decides the role; extra recognized tags and unknown tags
// each produce a warning. Validators without a declared strength are
// treated as weak, the non-neutralizing reading.
func (c *Classifier) Classify(node models.NodeSpec) (Classification, []models.Warning) {
	result := Classification{Role: models.RoleNone, Strength: models.StrengthNone}
	var warnings []models.Warning

	for _, tag := range node.Roles {
		role, err := models.ParseRole(tag.Role)
		if err != nil {
			unknownErr := &UnknownRoleError{NodeID: node.ID, Tag: tag.Role}
			c.logger.Warn("Unclassifiable role tag", "node_id", node.ID, "tag", tag.Role)
			warnings = append(warnings, models.Warning{NodeID: node.ID, Message: unknownErr.Error()})
			continue
		}
		if role == models.RoleNone {
			continue
		}

		if result.Role != models.RoleNone {
			c.logger.Warn("Multiple role tags on node", "node_id", node.ID, "kept", result.Role.String(), "ignored", tag.Role)
			warnings = append(warnings, models.Warning{
				NodeID:  node.ID,
				Message: fmt.Sprintf("node %q declares multiple role tags; keeping %q, ignoring %q", node.ID, result.Role.String(), tag.Role),
			})
			continue
		}

		result.Role = role
		result.Protects = tag.Protects
		result.Strength = c.resolveStrength(node.ID, role, tag, &warnings)
	}

	return result, warnings
}

// resolveStrength applies the validator strength rules. Only validators
// carry a meaningful strength; for every other role a declared strength is
// ignored with a warning.
func (c *Classifier) resolveStrength(nodeID string, role models.Role, tag models.RoleSpec, warnings *[]models.Warning) models.Strength {
	strength, err := models.ParseStrength(tag.Strength)
	if err != nil {
		c.logger.Warn("Unknown validator strength", "node_id", nodeID, "strength", tag.Strength)
		*warnings = append(*warnings, models.Warning{
			NodeID:  nodeID,
			Message: fmt.Sprintf("node %q declares unknown strength %q; treated as weak", nodeID, tag.Strength),
		})
		strength = models.StrengthNone
	}

	if role != models.RoleValidator {
		if strength != models.StrengthNone {
			*warnings = append(*warnings, models.Warning{
				NodeID:  nodeID,
				Message: fmt.Sprintf("node %q declares strength %q on role %q; strength only applies to validators", nodeID, strength.String(), role.String()),
			})
		}
		return models.StrengthNone
	}

	// An unspecified validator strength defaults to weak.
	if strength == models.StrengthNone {
		return models.StrengthWeak
	}
	return strength
}
