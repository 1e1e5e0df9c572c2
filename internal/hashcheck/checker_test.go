package hashcheck_test

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jmunixusers/vmcfg/internal/hashcheck"
)

const (
	testArtifactContentConstant    = "installer payload"
	testArtifactETagConstant       = `"artifact-v1"`
	testSourceFileConstant         = "roles/eclipse/vars/main.yml"
	testCaseValidHashConstant      = "matching_hash_validates"
	testCaseHashMismatchConstant   = "mismatched_hash_fails"
	testCaseServerErrorConstant    = "server_error_fails_check"
	testCaseCachedArtifactConstant = "not_modified_reuses_cached_hash"
)

func artifactHash(artifactContent string) string {
	contentDigest := sha1.Sum([]byte(artifactContent))
	return hex.EncodeToString(contentDigest[:])
}

func TestCheckerRunChecks(testInstance *testing.T) {
	requestedUserAgents := []string{}
	artifactServer := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		requestedUserAgents = append(requestedUserAgents, request.Header.Get("User-Agent"))
		switch request.URL.Path {
		case "/artifact.tar.gz":
			responseWriter.Header().Set("ETag", testArtifactETagConstant)
			_, _ = responseWriter.Write([]byte(testArtifactContentConstant))
		default:
			responseWriter.WriteHeader(http.StatusForbidden)
		}
	}))
	defer artifactServer.Close()

	testCases := []struct {
		name         string
		urlPath      string
		expectedHash string
		expectValid  bool
	}{
		{
			name:         testCaseValidHashConstant,
			urlPath:      "/artifact.tar.gz",
			expectedHash: artifactHash(testArtifactContentConstant),
			expectValid:  true,
		},
		{
			name:         testCaseHashMismatchConstant,
			urlPath:      "/artifact.tar.gz",
			expectedHash: "0000000000000000000000000000000000000000",
			expectValid:  false,
		},
		{
			name:         testCaseServerErrorConstant,
			urlPath:      "/missing.tar.gz",
			expectedHash: artifactHash(testArtifactContentConstant),
			expectValid:  false,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			checker := hashcheck.NewChecker(zap.NewNop(), hashcheck.NewCache(), hashcheck.CheckerOptions{Parallelism: 1})

			results := checker.RunChecks(context.Background(), []hashcheck.Check{
				{
					URL:          artifactServer.URL + testCase.urlPath,
					ExpectedHash: testCase.expectedHash,
					SourceFile:   testSourceFileConstant,
				},
			})

			require.Len(testInstance, results, 1)
			require.Equal(testInstance, testCase.expectValid, results[0].Valid)
			if !testCase.expectValid {
				require.Error(testInstance, results[0].Failure)
				require.Equal(testInstance, 1, hashcheck.CountFailures(results))
			}
		})
	}

	require.NotContains(testInstance, requestedUserAgents, "")
	for _, requestedUserAgent := range requestedUserAgents {
		require.Equal(testInstance, "ansible-httpget", requestedUserAgent)
	}
}

func TestCheckerReusesCachedHashOnNotModified(testInstance *testing.T) {
	downloadCount := 0
	artifactServer := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		if request.Header.Get("If-None-Match") == testArtifactETagConstant {
			responseWriter.WriteHeader(http.StatusNotModified)
			return
		}
		downloadCount++
		responseWriter.Header().Set("ETag", testArtifactETagConstant)
		_, _ = responseWriter.Write([]byte(testArtifactContentConstant))
	}))
	defer artifactServer.Close()

	artifactURL := artifactServer.URL + "/artifact.tar.gz"
	artifactCheck := hashcheck.Check{
		URL:          artifactURL,
		ExpectedHash: artifactHash(testArtifactContentConstant),
		SourceFile:   testSourceFileConstant,
	}

	artifactCache := hashcheck.NewCache()
	checker := hashcheck.NewChecker(zap.NewNop(), artifactCache, hashcheck.CheckerOptions{Parallelism: 1})

	firstResults := checker.RunChecks(context.Background(), []hashcheck.Check{artifactCheck})
	require.True(testInstance, firstResults[0].Valid)
	require.Equal(testInstance, 1, downloadCount)

	secondResults := checker.RunChecks(context.Background(), []hashcheck.Check{artifactCheck})
	require.True(testInstance, secondResults[0].Valid)
	require.Equal(testInstance, 1, downloadCount)

	cachedEntry, entryCached := artifactCache.Lookup(artifactURL)
	require.True(testInstance, entryCached)
	require.Equal(testInstance, testArtifactETagConstant, cachedEntry.ETag)
	require.Equal(testInstance, artifactCheck.ExpectedHash, cachedEntry.Hash)
}

func TestCacheRoundTrip(testInstance *testing.T) {
	cachePath := filepath.Join(testInstance.TempDir(), "nested", "hashcheck.json")

	originalCache := hashcheck.NewCache()
	originalCache.Store("https://downloads.example.org/artifact.tar.gz", hashcheck.CacheEntry{
		ETag:         testArtifactETagConstant,
		LastModified: "Mon, 02 Jan 2006 15:04:05 GMT",
		Hash:         artifactHash(testArtifactContentConstant),
	})
	require.NoError(testInstance, originalCache.SaveCache(cachePath))

	reloadedCache, loadError := hashcheck.LoadCache(cachePath)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, 1, reloadedCache.Len())

	reloadedEntry, entryPresent := reloadedCache.Lookup("https://downloads.example.org/artifact.tar.gz")
	require.True(testInstance, entryPresent)
	require.Equal(testInstance, testArtifactETagConstant, reloadedEntry.ETag)
}

func TestLoadCacheMissingFileYieldsEmptyCache(testInstance *testing.T) {
	loadedCache, loadError := hashcheck.LoadCache(filepath.Join(testInstance.TempDir(), "absent.json"))
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, 0, loadedCache.Len())
}
