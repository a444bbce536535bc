package app

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はデスクサーバーを起動することを示す。
	CommandServe Command = "serve"
	// CommandLogin はログインしてトークンを保存することを示す。
	CommandLogin Command = "login"
	// CommandLogout は保存済みトークンを破棄することを示す。
	CommandLogout Command = "logout"
	// CommandDashboard はダッシュボードの要約を表示することを示す。
	CommandDashboard Command = "dashboard"
	// CommandNotifications は通知一覧を表示することを示す。
	CommandNotifications Command = "notifications"
	// CommandWatch はリアルタイムチャネルの通知を表示し続けることを示す。
	CommandWatch Command = "watch"
	// CommandMigrate は状態データベースのマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck は起動中のデスクサーバーのヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch cmd := Command(args[0]); cmd {
	case CommandServe, CommandLogin, CommandLogout, CommandDashboard,
		CommandNotifications, CommandWatch, CommandMigrate, CommandHealthcheck:
		return cmd
	default:
		return CommandServe
	}
}
