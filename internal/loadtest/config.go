// Package loadtest drives a running groupify service end to end: it builds
// a random roster, partitions it and checks the groups that come back.
package loadtest

import "time"

// Config holds configuration for the roster load test
type Config struct {
	BaseURL      string        // Base URL of the service
	Members      int           // Number of members to generate
	GroupSize    int           // Requested group size
	Workers      int           // Number of concurrent workers
	Timeout      time.Duration // HTTP request timeout
	Seed         uint64        // Roster seed; 0 picks one from the clock
	PollInterval time.Duration // Delay between job polls
	Verbose      bool          // Enable verbose logging
}

// Member is a generated roster entry.
type Member struct {
	ID       string     `json:"member_id"`
	Energies [4]float64 `json:"energies"`
}

// Room mirrors the room shape returned by the service.
type Room struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Group mirrors the group shape returned by the service.
type Group struct {
	ID        string     `json:"id"`
	Number    int        `json:"number"`
	MemberIDs []string   `json:"member_ids"`
	Average   [4]float64 `json:"average"`
}

// Job mirrors a partition job.
type Job struct {
	ID       string   `json:"id"`
	Status   string   `json:"status"`
	Error    string   `json:"error"`
	GroupIDs []string `json:"group_ids"`
}

// Stats holds test statistics
type Stats struct {
	MembersGenerated  int
	MembersJoined     int
	ProfilesSubmitted int
	Failures          int
	JobPolls          int
	Groups            int
	SmallestGroup     int
	LargestGroup      int
	Spread            float64
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
