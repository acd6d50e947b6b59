package model

import "time"

// AttrValid is the validity flag of a playable video; any other value
// marks the video as withdrawn or otherwise invalid.
const AttrValid = 0

// Video is a single item fetched from a source folder. Immutable once
// fetched except for Tags, which this core leaves empty.
type Video struct {
	BVID        string    `json:"bvid"`
	ResourceID  int64     `json:"resource_id"`
	Title       string    `json:"title"`
	Cover       string    `json:"cover"`
	UpperName   string    `json:"upper_name"`
	PlayCount   int64     `json:"play_count"`
	FavoritedAt time.Time `json:"favorited_at"`
	Intro       string    `json:"intro"`
	Tags        []string  `json:"tags"`
	Attr        int       `json:"attr"`
}

// Valid reports whether the video should be considered for classification.
func (v Video) Valid() bool {
	return v.Attr == AttrValid
}

// LogEntry records a completed move operation for the bounded operation log.
type LogEntry struct {
	Timestamp      time.Time `json:"timestamp"`
	BVID           string    `json:"bvid"`
	VideoTitle     string    `json:"video_title"`
	FromFolderName string    `json:"from_folder_name"`
	ToFolderName   string    `json:"to_folder_name"`
}
