package docserver

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/grimoire/internal/cache"
	"github.com/any-hub/grimoire/internal/logging"
	"github.com/any-hub/grimoire/internal/rewrite"
	"github.com/any-hub/grimoire/internal/server"
	"github.com/any-hub/grimoire/internal/static"
)

// DocsCache 返回包文档构建的 Future。
type DocsCache interface {
	GetOrBuild(pkg string) *cache.Future
}

// Handler 实现 server.DocsHandler。
type Handler struct {
	cache  DocsCache
	logger *logrus.Logger
}

// NewHandler 创建文档请求处理器。
func NewHandler(docs DocsCache, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{cache: docs, logger: logger}
}

// Handle 解析请求路径；缺少结尾 "/" 时重定向，否则交给 Serve。
func (h *Handler) Handle(c fiber.Ctx) error {
	rawPath := string(c.Request().URI().PathOriginal())
	pkg, subpath, trailingSlash, ok := ParsePath(rawPath)
	if !ok {
		return c.Status(fiber.StatusNotFound).SendString("Not found")
	}
	if !trailingSlash {
		return c.Redirect().Status(fiber.StatusFound).To(PackagePath(pkg))
	}
	return h.Serve(c, pkg, subpath)
}

// Serve 等待包文档构建完成并返回子路径对应的文件。
func (h *Handler) Serve(c fiber.Ctx, pkg, subpath string) error {
	started := time.Now()
	entry := h.logger.WithFields(logging.RequestFields(pkg, subpath, server.RequestID(c)))

	ctx := c.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	vol, err := h.cache.GetOrBuild(pkg).Wait(ctx)
	if err != nil {
		entry.WithError(err).WithField("elapsed_ms", time.Since(started).Milliseconds()).Error("文档构建失败")
		return c.Status(fiber.StatusInternalServerError).SendString("Internal Server Error")
	}

	data, contentType, err := static.Resolve(vol, subpath)
	if err != nil {
		if errors.Is(err, static.ErrNotFound) {
			entry.WithError(err).Warn("文档文件不存在")
			return c.Status(fiber.StatusNotFound).SendString("Not found")
		}
		entry.WithError(err).Error("读取文档文件失败")
		return c.Status(fiber.StatusInternalServerError).SendString("Internal Server Error")
	}

	body, err := rewrite.Apply(contentType, data)
	if err != nil {
		entry.WithError(err).Warn("改写响应失败，返回原始内容")
		body = data
	}

	entry.WithFields(logrus.Fields{
		"status":     fiber.StatusOK,
		"bytes":      len(body),
		"elapsed_ms": time.Since(started).Milliseconds(),
	}).Debug("文档请求完成")

	c.Set(fiber.HeaderContentType, contentType)
	return c.Status(fiber.StatusOK).Send(body)
}
