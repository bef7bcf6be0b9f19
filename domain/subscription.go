package domain

import "time"

// PushSubscription is a registered Web Push endpoint with per-user filters
// (spec.md §3).
type PushSubscription struct {
	Endpoint string // unique key
	P256DH   string
	Auth     string

	Counties map[int]struct{} // empty/nil means "all counties"
	MinSeverity int           // 1..5

	TopicRealtid       bool
	TopicRoadCondition bool

	// Display preferences, carried from original_source/backend/database.py.
	IncludeSeverity bool
	IncludeImage    bool
	IncludeWeather  bool
	IncludeLocation bool

	CreatedAt time.Time
}

// ClientInterest expresses "this live viewer currently wants events from
// these counties" (spec.md §3).
type ClientInterest struct {
	ClientID   string
	Counties   map[int]struct{}
	LastActive time.Time

	// Carried from original_source/backend/database.py's migration list.
	UserAgent string
	IsAdmin   bool
}

// Settings is the admin-mutable key/value configuration map (spec.md §3/§6).
type Settings struct {
	APIKey             string
	SelectedCounties    []int
	CameraRadiusKM      float64
	MQTTEnabled         bool
	MQTTHost            string
	MQTTPort            int
	MQTTUsername        string
	MQTTPassword        string
	MQTTTopic           string
	MQTTRoadConditionTopic string
	RetentionDays       int
	BaseURL             string
	AdminPassword       string
	PushNotificationsEnabled  bool
	SoundNotificationsEnabled bool
	VAPIDPrivateKey     string
	VAPIDPublicKey      string
}

// DefaultCameraRadiusKM resolves the open question in spec.md §9: the
// narrative text says "varies between 5.0 and 8.0 across source revisions";
// the settings table in §6 lists 8.0 as the default, which this
// implementation treats as authoritative.
const DefaultCameraRadiusKM = 8.0
