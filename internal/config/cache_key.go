package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// PackageWindowKey returns the cache key for a package's open/close window
func (r *CacheKeyStruct) PackageWindowKey(packageID int64) string {
	return fmt.Sprintf("package:%d:window", packageID)
}

// PackageMonitorChannel returns the Redis PubSub channel name for a package monitor
func (r *CacheKeyStruct) PackageMonitorChannel(packageID int64) string {
	return fmt.Sprintf("package:%d:monitor", packageID)
}

var CacheKey = NewCacheKeyStruct()
