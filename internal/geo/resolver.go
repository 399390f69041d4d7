// Package geo 行政区划名称解析：把传感器绑定的 city/LGA 标识解析为
// 可读的位置描述，供告警文案使用。只读、可缺省，解析失败不影响接收链路。
package geo

import (
	"context"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// placeResponse 区划服务响应
type placeResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Resolver 基于平台区划服务的位置解析器。
// 区划名称几乎不变化，进程内缓存永不过期。
type Resolver struct {
	httpClient *resty.Client
	logger     *zap.Logger

	mu    sync.RWMutex
	cache map[string]string // "city:<id>" / "lga:<id>" -> display name
}

// NewResolver 创建位置解析器
func NewResolver(baseURL string, timeout time.Duration, logger *zap.Logger) *Resolver {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetHeader("Accept", "application/json")

	return &Resolver{
		httpClient: client,
		logger:     logger,
		cache:      make(map[string]string),
	}
}

// ResolveLocation 解析 "LGA, City" 形式的位置描述。
// 任一标识为空则跳过该段；全部解析失败返回空字符串，由调用方回退到传感器地址。
func (r *Resolver) ResolveLocation(ctx context.Context, cityID, lgaID string) string {
	var lga, city string
	if lgaID != "" {
		lga = r.lookup(ctx, "lga", lgaID)
	}
	if cityID != "" {
		city = r.lookup(ctx, "city", cityID)
	}

	switch {
	case lga != "" && city != "":
		return lga + ", " + city
	case lga != "":
		return lga
	default:
		return city
	}
}

var placePaths = map[string]string{
	"city": "/api/v1/cities/",
	"lga":  "/api/v1/lgas/",
}

func (r *Resolver) lookup(ctx context.Context, kind, id string) string {
	key := kind + ":" + id

	r.mu.RLock()
	name, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return name
	}

	var place placeResponse
	resp, err := r.httpClient.R().
		SetContext(ctx).
		SetResult(&place).
		Get(placePaths[kind] + id)
	if err != nil {
		r.logger.Warn("Failed to resolve place name",
			zap.String("kind", kind),
			zap.String("id", id),
			zap.Error(err),
		)
		return ""
	}
	if resp.StatusCode() != 200 || place.Name == "" {
		r.logger.Warn("Place lookup returned no name",
			zap.String("kind", kind),
			zap.String("id", id),
			zap.Int("status", resp.StatusCode()),
		)
		return ""
	}

	r.mu.Lock()
	r.cache[key] = place.Name
	r.mu.Unlock()
	return place.Name
}
