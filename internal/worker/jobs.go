package worker

import (
	"context"

	"github.com/hitoshi/investdesk/internal/apiclient"
	"github.com/hitoshi/investdesk/internal/auth"
	"github.com/hitoshi/investdesk/internal/realtime"
)

// SessionState はログイン状態の参照元。
type SessionState interface {
	State() auth.State
}

// ChannelStatus はリアルタイムチャネルの接続状態の参照元。
type ChannelStatus interface {
	Status() realtime.Status
}

// NotificationRefresher は通知一覧を再取得する。
type NotificationRefresher interface {
	Refresh(ctx context.Context) error
}

// NotificationPollJob はリアルタイムチャネルが繋がっていない間、通知一覧を定期的に再取得する。
// 失敗してもトーストは出さない。
type NotificationPollJob struct {
	sessions      SessionState
	channel       ChannelStatus
	notifications NotificationRefresher
}

// NewNotificationPollJob はNotificationPollJobを生成する。
func NewNotificationPollJob(sessions SessionState, channel ChannelStatus, notifications NotificationRefresher) *NotificationPollJob {
	return &NotificationPollJob{sessions: sessions, channel: channel, notifications: notifications}
}

// Name はジョブ名を返す。
func (j *NotificationPollJob) Name() string { return "notification_poll" }

// Run は未ログインまたはチャネル接続中であれば何もしない。
func (j *NotificationPollJob) Run(ctx context.Context) error {
	if j.sessions.State() != auth.StateAuthenticated {
		return nil
	}
	if j.channel.Status().Phase == realtime.PhaseConnected {
		return nil
	}
	return j.notifications.Refresh(apiclient.Quiet(ctx))
}

// SessionExpirer は有効期限切れのセッションを破棄する。
type SessionExpirer interface {
	ExpireIfStale(ctx context.Context) bool
}

// SessionExpiryJob はセッション中のトークンの有効期限を監視し、切れたらセッションを破棄する。
type SessionExpiryJob struct {
	sessions SessionExpirer
}

// NewSessionExpiryJob はSessionExpiryJobを生成する。
func NewSessionExpiryJob(sessions SessionExpirer) *SessionExpiryJob {
	return &SessionExpiryJob{sessions: sessions}
}

// Name はジョブ名を返す。
func (j *SessionExpiryJob) Name() string { return "session_expiry" }

// Run は有効期限を確認する。
func (j *SessionExpiryJob) Run(ctx context.Context) error {
	j.sessions.ExpireIfStale(ctx)
	return nil
}
