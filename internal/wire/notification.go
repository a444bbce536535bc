package wire

import (
	"github.com/hitoshi/investdesk/internal/model"
	"github.com/tidwall/gjson"
)

// Notification は通知レコードを正規化する。IDが取り出せない場合はokにfalseを返す。
func Notification(r gjson.Result) (n model.Notification, ok bool) {
	id := ID(r)
	if id == "" {
		return model.Notification{}, false
	}

	n = model.Notification{
		ID:       id,
		Type:     First(r, "type", "category").String(),
		Title:    r.Get("title").String(),
		Message:  First(r, "message", "body").String(),
		Time:     Time(First(r, "time", "createdAt", "timestamp")),
		Read:     First(r, "read", "isRead").Bool(),
		Priority: r.Get("priority").String(),
	}
	if meta := r.Get("metadata"); meta.Exists() && meta.Type != gjson.Null {
		n.Metadata = []byte(meta.Raw)
	}
	return n, true
}

// Notifications は通知一覧のレスポンスを正規化する。IDのないレコードは除外する。
func Notifications(body []byte) []model.Notification {
	items := List(body, "notifications")
	out := make([]model.Notification, 0, len(items))
	for _, item := range items {
		if n, ok := Notification(item); ok {
			out = append(out, n)
		}
	}
	return out
}
