// Package utils 缓存工具
package utils

import (
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
)

// Cache 全局缓存实例
// 主要给前端搜索这类上游结果短期复用，默认过期 5 分钟，清理间隔 10 分钟
var Cache *cache.Cache

func init() {
	Cache = cache.New(5*time.Minute, 10*time.Minute)
}

// HeadendCacheKey 前端搜索结果的缓存键
func HeadendCacheKey(country, postalCode string) string {
	return fmt.Sprintf("headends:%s:%s", country, postalCode)
}

// CacheGet 获取缓存
func CacheGet(key string) (interface{}, bool) {
	return Cache.Get(key)
}

// CacheSet 设置缓存
func CacheSet(key string, value interface{}, duration time.Duration) {
	Cache.Set(key, value, duration)
}

// CacheDelete 删除缓存
func CacheDelete(key string) {
	Cache.Delete(key)
}

// CacheGetOrSet 命中直接返回，未命中时执行 fn 并缓存结果
// fn 出错不缓存
func CacheGetOrSet(key string, duration time.Duration, fn func() (interface{}, error)) (interface{}, error) {
	if val, found := Cache.Get(key); found {
		return val, nil
	}

	val, err := fn()
	if err != nil {
		return nil, err
	}

	Cache.Set(key, val, duration)
	return val, nil
}
