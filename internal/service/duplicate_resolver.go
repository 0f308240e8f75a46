package service

import (
	"context"
	"fmt"

	"github.com/GTDGit/gtd_console/internal/models"
	"github.com/GTDGit/gtd_console/internal/repository"
)

// ResolutionKind is the outcome of a duplicate check.
type ResolutionKind int

const (
	// ResolutionClear means the name is free.
	ResolutionClear ResolutionKind = iota
	// ResolutionDuplicate means the product cannot be created.
	ResolutionDuplicate
	// ResolutionRenamed means the name is taken by another brand and the
	// product must be created under Name instead.
	ResolutionRenamed
)

func (k ResolutionKind) String() string {
	switch k {
	case ResolutionClear:
		return "clear"
	case ResolutionDuplicate:
		return "duplicate"
	case ResolutionRenamed:
		return "renamed"
	default:
		return fmt.Sprintf("ResolutionKind(%d)", int(k))
	}
}

// Resolution tells a creator which name to use, or which row it collides with.
type Resolution struct {
	Kind     ResolutionKind
	Name     string
	Existing *models.Product
}

// DuplicateResolver decides whether a new product duplicates an existing one.
// It is stateless; callers pass a repository bound to their transaction.
type DuplicateResolver struct{}

// Resolve checks name and brand against the merchant's catalog:
//
//  1. same name and brand: duplicate
//  2. name free: clear
//  3. name held by another brand: renamed to "<name> (<brand>)", unless that
//     name is also taken, which is a duplicate
//
// A product without a brand whose name is already taken is a duplicate since
// product names are unique per merchant.
func (DuplicateResolver) Resolve(ctx context.Context, products *repository.ProductRepository, merchantID int, name string, brand *string) (Resolution, error) {
	exact, err := products.FindByNameAndBrand(ctx, merchantID, name, brand)
	if err != nil {
		return Resolution{}, fmt.Errorf("find by name and brand: %w", err)
	}
	if exact != nil {
		return Resolution{Kind: ResolutionDuplicate, Name: name, Existing: exact}, nil
	}

	sameName, err := products.FindByName(ctx, merchantID, name)
	if err != nil {
		return Resolution{}, fmt.Errorf("find by name: %w", err)
	}
	if sameName == nil {
		return Resolution{Kind: ResolutionClear, Name: name}, nil
	}
	if brand == nil || *brand == "" {
		return Resolution{Kind: ResolutionDuplicate, Name: name, Existing: sameName}, nil
	}

	renamed := fmt.Sprintf("%s (%s)", name, *brand)
	taken, err := products.FindByName(ctx, merchantID, renamed)
	if err != nil {
		return Resolution{}, fmt.Errorf("find renamed: %w", err)
	}
	if taken != nil {
		return Resolution{Kind: ResolutionDuplicate, Name: renamed, Existing: taken}, nil
	}
	return Resolution{Kind: ResolutionRenamed, Name: renamed}, nil
}
