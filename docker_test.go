package investdesk_test

import (
	"os"
	"strings"
	"testing"
)

func readFile(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(name)
	if err != nil {
		t.Fatalf("failed to read %s: %v", name, err)
	}
	return string(data)
}

func TestDockerfileMultiStageBuild(t *testing.T) {
	content := readFile(t, "Dockerfile")

	// マルチステージビルドの確認: ビルドステージと実行ステージが存在すること
	if !strings.Contains(content, "FROM golang:") {
		t.Error("Dockerfile should contain a Go builder stage (FROM golang:)")
	}

	// 最終ステージは軽量イメージであること
	var lastFrom string
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "FROM ") {
			lastFrom = trimmed
		}
	}
	if !strings.Contains(lastFrom, "gcr.io/distroless") && !strings.Contains(lastFrom, "alpine") && !strings.Contains(lastFrom, "scratch") {
		t.Errorf("final stage should use a minimal base image (distroless/alpine/scratch), got: %s", lastFrom)
	}
}

func TestDockerfileBuildsWithoutCGO(t *testing.T) {
	content := readFile(t, "Dockerfile")

	// distrolessのstaticイメージで動かすためCGOを無効にしてビルドすること
	if !strings.Contains(content, "CGO_ENABLED=0") {
		t.Error("Dockerfile should build with CGO_ENABLED=0")
	}
	if !strings.Contains(content, "./cmd/investdesk") {
		t.Error("Dockerfile should build ./cmd/investdesk")
	}
}

func TestDockerfileEntrypointAndHealthcheck(t *testing.T) {
	content := readFile(t, "Dockerfile")

	if !strings.Contains(content, "ENTRYPOINT") {
		t.Error("Dockerfile should contain ENTRYPOINT")
	}
	// シェルのないイメージのためhealthcheckサブコマンドを使うこと
	if !strings.Contains(content, `"healthcheck"`) {
		t.Error("Dockerfile HEALTHCHECK should use the healthcheck subcommand")
	}
}

func TestDockerComposeServices(t *testing.T) {
	content := readFile(t, "docker-compose.yml")

	for _, svc := range []string{"migrate:", "desk:"} {
		if !strings.Contains(content, svc) {
			t.Errorf("docker-compose.yml should contain service %q", svc)
		}
	}
	if !strings.Contains(content, "service_completed_successfully") {
		t.Error("desk should wait for migrate to complete")
	}
}

func TestDockerComposeStateVolume(t *testing.T) {
	content := readFile(t, "docker-compose.yml")

	// 状態DBはボリュームに置き、再起動後もセッションを復元できること
	if !strings.Contains(content, "STATE_DB_PATH: /data/investdesk.db") {
		t.Error("docker-compose.yml should place the state database on the /data volume")
	}
	if !strings.Contains(content, "state:/data") {
		t.Error("docker-compose.yml should mount the state volume")
	}
}

func TestDockerComposeNetworks(t *testing.T) {
	content := readFile(t, "docker-compose.yml")

	// 内部ネットワークの定義（internal: true）
	if !strings.Contains(content, "internal: true") {
		t.Error("docker-compose.yml should define an internal network (internal: true)")
	}
	// デスクサーバーのみ外部通信を許可するネットワーク構成
	if !strings.Contains(content, "external:") {
		t.Error("docker-compose.yml should define an external network for the desk server")
	}
}
