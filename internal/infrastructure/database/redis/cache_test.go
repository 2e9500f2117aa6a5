package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/PharmaCliff-Intelligence/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/PharmaCliff-Intelligence/pkg/errors"
)

type CacheTestSuite struct {
	suite.Suite
	client *Client
	mock   redismock.ClientMock
	cache  Cache
}

func (s *CacheTestSuite) SetupTest() {
	db, mock := redismock.NewClientMock()
	s.mock = mock
	s.client = &Client{rdb: db, log: logging.NewNopLogger()}
	s.cache = NewCache(s.client, logging.NewNopLogger(), WithPrefix("test:"))
}

func (s *CacheTestSuite) TearDownTest() {
	assert.NoError(s.T(), s.mock.ExpectationsWereMet())
}

type cachedResult struct {
	JobID string `json:"job_id"`
	Count int    `json:"count"`
}

func (s *CacheTestSuite) TestGet_Hit() {
	val := cachedResult{JobID: "job-1", Count: 12}
	bytes, _ := json.Marshal(val)

	s.mock.ExpectGet("test:key1").SetVal(string(bytes))

	var dest cachedResult
	err := s.cache.Get(context.Background(), "key1", &dest)

	assert.NoError(s.T(), err)
	assert.Equal(s.T(), val, dest)
}

func (s *CacheTestSuite) TestGet_Miss() {
	s.mock.ExpectGet("test:absent").RedisNil()

	var dest cachedResult
	err := s.cache.Get(context.Background(), "absent", &dest)

	assert.ErrorIs(s.T(), err, ErrCacheMiss)
}

func (s *CacheTestSuite) TestGet_NullCached() {
	s.mock.ExpectGet("test:null").SetVal(nullValue)

	var dest cachedResult
	err := s.cache.Get(context.Background(), "null", &dest)

	assert.ErrorIs(s.T(), err, ErrCacheMiss)
}

func (s *CacheTestSuite) TestSetNull() {
	s.mock.ExpectSet("test:null", nullValue, 30*time.Second).SetVal("OK")

	assert.NoError(s.T(), s.cache.SetNull(context.Background(), "null"))
}

func (s *CacheTestSuite) TestDelete() {
	s.mock.ExpectDel("test:a", "test:b").SetVal(2)

	assert.NoError(s.T(), s.cache.Delete(context.Background(), "a", "b"))
}

func (s *CacheTestSuite) TestDelete_NoKeys() {
	assert.NoError(s.T(), s.cache.Delete(context.Background()))
}

func (s *CacheTestSuite) TestExists() {
	s.mock.ExpectExists("test:key1").SetVal(1)

	ok, err := s.cache.Exists(context.Background(), "key1")
	assert.NoError(s.T(), err)
	assert.True(s.T(), ok)
}

func (s *CacheTestSuite) TestGetOrSet_LoaderError() {
	s.mock.ExpectGet("test:key1").RedisNil()

	wantErr := apperrors.New(apperrors.ErrCodeExternalService, "upstream down")
	var dest cachedResult
	err := s.cache.GetOrSet(context.Background(), "key1", &dest, time.Minute,
		func(context.Context) (interface{}, error) { return nil, wantErr })

	assert.ErrorIs(s.T(), err, wantErr)
}

func TestCacheTestSuite(t *testing.T) {
	suite.Run(t, new(CacheTestSuite))
}
