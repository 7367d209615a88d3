package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// PlannerSessionKey returns the cache key holding a planner session's working set
func (r *CacheKeyStruct) PlannerSessionKey(sessionID string) string {
	return fmt.Sprintf("planner:session:%s", sessionID)
}

// PlannerTimetableKey returns the cache key for a planner session's projected timetable
func (r *CacheKeyStruct) PlannerTimetableKey(sessionID string) string {
	return fmt.Sprintf("planner:session:%s:timetable", sessionID)
}

// PlannerEventsChannel returns the Redis PubSub channel for a planner session's updates
func (r *CacheKeyStruct) PlannerEventsChannel(sessionID string) string {
	return fmt.Sprintf("planner:session:%s:events", sessionID)
}

// CatalogUpdatedChannel is the Redis PubSub channel announcing a replaced catalog
func (r *CacheKeyStruct) CatalogUpdatedChannel() string {
	return "catalog:updated"
}

var CacheKey = NewCacheKeyStruct()
