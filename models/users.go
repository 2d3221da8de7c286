package models

// User represents a user in the directory.
type User struct {
	UserID    string   `json:"userid" yaml:"userid"`
	FirstName string   `json:"first_name" yaml:"first_name"`
	LastName  string   `json:"last_name" yaml:"last_name"`
	Groups    []string `json:"groups" yaml:"groups"`
}

// Group represents a group in the directory and the userids it holds.
type Group struct {
	GroupID string   `json:"groupid" yaml:"groupid"`
	Members []string `json:"members" yaml:"members"`
}
