package config

import (
	"Arena/services/redis"
	"log"
)

// ConnectRedis opens the Redis client at url. An empty url means no Redis.
func ConnectRedis(url string) (*redis.RedisClient, error) {
	if url == "" {
		log.Println("REDIS_URL not set, presence and summary cache disabled")
		return nil, nil
	}
	redisClient, err := redis.InitRedis(url, 0)
	if err != nil {
		log.Printf("Error connecting to Redis: %v", err)
		return nil, err
	}
	log.Println("Redis connection established")
	return redisClient, nil
}
