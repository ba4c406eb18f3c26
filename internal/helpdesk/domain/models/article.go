package models

import (
	"slices"
	"strings"
)

const GroupAll = "all"

type HelpArticle struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
	Body        string   `json:"body"`
	Links       []string `json:"links"`
	Groups      []string `json:"groups"`
	Level       string   `json:"level"`
}

func (a HelpArticle) InGroup(group string) bool {
	if strings.EqualFold(group, GroupAll) {
		return true
	}

	return slices.Contains(a.Groups, group)
}

// Matches is an exact keyword hit or a case-sensitive substring of the title.
func (a HelpArticle) Matches(keyword string) bool {
	return slices.Contains(a.Keywords, keyword) || strings.Contains(a.Title, keyword)
}

func (a HelpArticle) Clone() HelpArticle {
	c := a
	c.Keywords = slices.Clone(a.Keywords)
	c.Links = slices.Clone(a.Links)
	c.Groups = slices.Clone(a.Groups)

	return c
}

func FilterByGroup(articles []HelpArticle, group string) []HelpArticle {
	res := make([]HelpArticle, 0, len(articles))

	for _, a := range articles {
		if a.InGroup(group) {
			res = append(res, a)
		}
	}

	return res
}

func Search(articles []HelpArticle, keyword string) []HelpArticle {
	res := make([]HelpArticle, 0)

	for _, a := range articles {
		if a.Matches(keyword) {
			res = append(res, a)
		}
	}

	return res
}

func ContainsID(articles []HelpArticle, id int64) bool {
	return slices.ContainsFunc(articles, func(a HelpArticle) bool { return a.ID == id })
}
