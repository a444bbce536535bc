package model

import (
	"encoding/json"
	"time"
)

// Notification はユーザー向け通知を表す。
// IDは取り込み時に id / _id のどちらからでも文字列へ正規化済みであること。
type Notification struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Title    string          `json:"title"`
	Message  string          `json:"message"`
	Time     time.Time       `json:"time"`
	Read     bool            `json:"read"`
	Priority string          `json:"priority,omitempty"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// NotificationSource は通知の取り込み経路を表す。
type NotificationSource string

const (
	// NotificationSourceRefresh は一括取得による取り込み。
	NotificationSourceRefresh NotificationSource = "refresh"
	// NotificationSourcePush はリアルタイムチャネルからの取り込み。
	NotificationSourcePush NotificationSource = "push"
)
