// Package types contains read shapes shared by the service and the HTTP API.
package types

import "github.com/groupify/groupify/internal/domain/model"

// GroupDetail is a group together with its average insight profile.
type GroupDetail struct {
	model.Group
	Average [4]float64 `json:"average"`
}

// RoomDetail is a room with its current member ids and group count.
type RoomDetail struct {
	model.Room
	MemberIDs  []string `json:"member_ids"`
	GroupCount int      `json:"group_count"`
}

// Match is another member ranked by profile similarity.
type Match struct {
	MemberID   string  `json:"member_id"`
	Percentage float64 `json:"percentage"`
}
