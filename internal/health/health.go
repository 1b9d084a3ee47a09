package health

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"
)

// Checker 健康检查器，围绕数据根目录的可用性构建。
// 文件系统就是数据库，磁盘不可写等于服务不可用。
type Checker struct {
	health   healthcheck.Handler
	dataRoot string
	log      *zap.Logger
}

// NewChecker 创建健康检查器。
func NewChecker(dataRoot string, log *zap.Logger) *Checker {
	c := &Checker{
		health:   healthcheck.NewHandler(),
		dataRoot: dataRoot,
		log:      log,
	}
	c.addChecks()
	return c
}

func (c *Checker) addChecks() {
	// 数据根目录必须存在且可达
	c.health.AddLivenessCheck("data-root", func() error {
		info, err := os.Stat(c.dataRoot)
		if err != nil {
			return fmt.Errorf("data root unavailable: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("data root is not a directory")
		}
		return nil
	})

	// 数据根目录必须可写：写入并删除一个探针文件
	c.health.AddReadinessCheck("data-root-writable", func() error {
		probe := filepath.Join(c.dataRoot, ".healthcheck")
		if err := os.WriteFile(probe, []byte(time.Now().Format(time.RFC3339)), 0o644); err != nil {
			return fmt.Errorf("data root not writable: %w", err)
		}
		return os.Remove(probe)
	})

	c.health.AddLivenessCheck("goroutines", healthcheck.GoroutineCountCheck(10000))
}

// Handler 返回健康检查处理器（/live 与 /ready）。
func (c *Checker) Handler() http.Handler {
	return c.health
}
