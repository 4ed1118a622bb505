// Package category maintains each owner's income and expense category forest.
package category

import (
	"github.com/Veraticus/pennywise/internal/model"
)

// RetainWithAncestors returns the categories for which match is true plus
// every ancestor of a match, preserving input order. Each parent chain is
// walked only until it reaches a node already collected.
func RetainWithAncestors(all []model.Category, match func(*model.Category) bool) []model.Category {
	byID := make(map[int64]*model.Category, len(all))
	for i := range all {
		byID[all[i].ID] = &all[i]
	}

	keep := make(map[int64]bool, len(all))
	for i := range all {
		c := &all[i]
		if !match(c) {
			continue
		}
		keep[c.ID] = true
		for parentID := c.ParentID; parentID != nil; {
			if keep[*parentID] {
				break
			}
			parent, ok := byID[*parentID]
			if !ok {
				break
			}
			keep[parent.ID] = true
			parentID = parent.ParentID
		}
	}

	retained := make([]model.Category, 0, len(keep))
	for _, c := range all {
		if keep[c.ID] {
			retained = append(retained, c)
		}
	}
	return retained
}

// BuildForest groups categories under their parents in one pass. Nodes
// whose parent is absent from the input become roots. Sibling order
// follows input order.
func BuildForest(categories []model.Category) []*model.CategoryNode {
	nodes := make(map[int64]*model.CategoryNode, len(categories))
	for _, c := range categories {
		nodes[c.ID] = &model.CategoryNode{Category: c}
	}

	var roots []*model.CategoryNode
	for _, c := range categories {
		node := nodes[c.ID]
		if c.ParentID != nil {
			if parent, ok := nodes[*c.ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots
}

// Subtree returns the node for id within forest, or nil.
func Subtree(forest []*model.CategoryNode, id int64) *model.CategoryNode {
	var found *model.CategoryNode
	for _, root := range forest {
		root.Walk(func(n *model.CategoryNode) {
			if found == nil && n.ID == id {
				found = n
			}
		})
		if found != nil {
			return found
		}
	}
	return nil
}

// CountNodes returns the number of nodes in forest.
func CountNodes(forest []*model.CategoryNode) int {
	count := 0
	for _, root := range forest {
		root.Walk(func(*model.CategoryNode) { count++ })
	}
	return count
}
