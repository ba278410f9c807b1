package models

// Blog is the only document stored in the index.
type Blog struct {
	ID       string `json:"id"`
	User     string `json:"user"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	PostDate string `json:"postDate"`
}

// IndexAck is returned once a Blog has been written to the index.
type IndexAck struct {
	ID     string `json:"id"`
	Index  string `json:"index"`
	Result string `json:"result"`
}
