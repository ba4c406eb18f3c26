package articleservice

type ArticleRequest struct {
	Title       string
	Description string
	Keywords    []string
	Body        string
	Links       []string
	Groups      []string
	Level       string
}

// RestoreSummary reports what a restore changed.
type RestoreSummary struct {
	Users    int
	Restored int
	Added    int
	Merge    bool
}
