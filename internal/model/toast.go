package model

import "time"

// ToastType はトーストの種別を表す。
type ToastType string

const (
	ToastError   ToastType = "error"
	ToastSuccess ToastType = "success"
	ToastInfo    ToastType = "info"
	ToastWarning ToastType = "warning"
)

// Toast は一定時間で自動的に消える画面上の通知を表す。永続化しない。
type Toast struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Type      ToastType `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
}
