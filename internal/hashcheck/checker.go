package hashcheck

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// Ansible's own download User-Agent; some mirrors reject the Go default.
	ansibleUserAgentConstant = "ansible-httpget"

	userAgentHeaderConstant       = "User-Agent"
	ifNoneMatchHeaderConstant     = "If-None-Match"
	ifModifiedSinceHeaderConstant = "If-Modified-Since"
	etagHeaderConstant            = "ETag"
	lastModifiedHeaderConstant    = "Last-Modified"

	defaultDownloadTimeoutConstant = 10 * time.Minute
	defaultParallelismConstant     = 4

	downloadFailedTemplateConstant     = "%s: unable to download %s: %v"
	unexpectedStatusTemplateConstant   = "%s: unexpected status %d for %s"
	hashMismatchTemplateConstant       = "%s: expected %s, found %s for %s"
	artifactValidatedMessageConstant   = "artifact hash validated"
	artifactRevalidatedMessageConstant = "artifact unchanged, cached hash reused"
	logFieldURLConstant                = "url"
	logFieldSourceFileConstant         = "source_file"
	logFieldHashConstant               = "hash"
)

// Result reports the outcome of validating one URL.
type Result struct {
	Check      Check
	ActualHash string
	Valid      bool
	Failure    error
}

// Checker downloads artifacts and compares their SHA-1 hashes against the
// expected values, reusing cached hashes for unchanged artifacts.
type Checker struct {
	logger      *zap.Logger
	httpClient  *http.Client
	cache       *Cache
	parallelism int
}

// CheckerOptions adjusts checker defaults.
type CheckerOptions struct {
	HTTPClient  *http.Client
	Parallelism int
}

// NewChecker constructs a Checker using the provided cache.
func NewChecker(logger *zap.Logger, artifactCache *Cache, options CheckerOptions) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if artifactCache == nil {
		artifactCache = NewCache()
	}

	httpClient := options.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultDownloadTimeoutConstant}
	}

	parallelism := options.Parallelism
	if parallelism <= 0 {
		parallelism = defaultParallelismConstant
	}

	return &Checker{
		logger:      logger,
		httpClient:  httpClient,
		cache:       artifactCache,
		parallelism: parallelism,
	}
}

// RunChecks validates every check concurrently and returns one result per
// check. Individual failures are captured in the results, never returned as
// an error.
func (checker *Checker) RunChecks(executionContext context.Context, checks []Check) []Result {
	results := make([]Result, len(checks))
	var resultsMutex sync.Mutex

	checkGroup, groupContext := errgroup.WithContext(executionContext)
	checkGroup.SetLimit(checker.parallelism)

	for checkIndex, artifactCheck := range checks {
		checkGroup.Go(func() error {
			checkResult := checker.runCheck(groupContext, artifactCheck)
			resultsMutex.Lock()
			results[checkIndex] = checkResult
			resultsMutex.Unlock()
			return nil
		})
	}

	// Workers never return errors; Wait only orders the result writes.
	_ = checkGroup.Wait()
	return results
}

// CountFailures tallies the results that did not validate.
func CountFailures(results []Result) int {
	failureCount := 0
	for _, checkResult := range results {
		if !checkResult.Valid {
			failureCount++
		}
	}
	return failureCount
}

func (checker *Checker) runCheck(executionContext context.Context, artifactCheck Check) Result {
	actualHash, hashError := checker.artifactHash(executionContext, artifactCheck)
	if hashError != nil {
		return Result{Check: artifactCheck, Failure: hashError}
	}

	if actualHash != artifactCheck.ExpectedHash {
		mismatchFailure := fmt.Errorf(
			hashMismatchTemplateConstant,
			artifactCheck.SourceFile, artifactCheck.ExpectedHash, actualHash, artifactCheck.URL,
		)
		return Result{Check: artifactCheck, ActualHash: actualHash, Failure: mismatchFailure}
	}

	checker.logger.Info(
		artifactValidatedMessageConstant,
		zap.String(logFieldSourceFileConstant, artifactCheck.SourceFile),
		zap.String(logFieldURLConstant, artifactCheck.URL),
		zap.String(logFieldHashConstant, actualHash),
	)
	return Result{Check: artifactCheck, ActualHash: actualHash, Valid: true}
}

// artifactHash downloads the artifact and hashes it, sending cached
// validators so unchanged artifacts answer 304 and skip the download.
func (checker *Checker) artifactHash(executionContext context.Context, artifactCheck Check) (string, error) {
	downloadRequest, requestError := http.NewRequestWithContext(executionContext, http.MethodGet, artifactCheck.URL, nil)
	if requestError != nil {
		return "", fmt.Errorf(downloadFailedTemplateConstant, artifactCheck.SourceFile, artifactCheck.URL, requestError)
	}
	downloadRequest.Header.Set(userAgentHeaderConstant, ansibleUserAgentConstant)

	cachedEntry, entryCached := checker.cache.Lookup(artifactCheck.URL)
	if entryCached {
		if len(cachedEntry.ETag) > 0 {
			downloadRequest.Header.Set(ifNoneMatchHeaderConstant, cachedEntry.ETag)
		}
		if len(cachedEntry.LastModified) > 0 {
			downloadRequest.Header.Set(ifModifiedSinceHeaderConstant, cachedEntry.LastModified)
		}
	}

	downloadResponse, downloadError := checker.httpClient.Do(downloadRequest)
	if downloadError != nil {
		return "", fmt.Errorf(downloadFailedTemplateConstant, artifactCheck.SourceFile, artifactCheck.URL, downloadError)
	}
	defer downloadResponse.Body.Close()

	switch downloadResponse.StatusCode {
	case http.StatusOK:
		artifactContent, readError := io.ReadAll(downloadResponse.Body)
		if readError != nil {
			return "", fmt.Errorf(downloadFailedTemplateConstant, artifactCheck.SourceFile, artifactCheck.URL, readError)
		}

		contentDigest := sha1.Sum(artifactContent)
		contentHash := hex.EncodeToString(contentDigest[:])

		checker.cache.Store(artifactCheck.URL, CacheEntry{
			ETag:         downloadResponse.Header.Get(etagHeaderConstant),
			LastModified: downloadResponse.Header.Get(lastModifiedHeaderConstant),
			Hash:         contentHash,
		})
		return contentHash, nil
	case http.StatusNotModified:
		if entryCached {
			checker.logger.Debug(
				artifactRevalidatedMessageConstant,
				zap.String(logFieldURLConstant, artifactCheck.URL),
			)
			return cachedEntry.Hash, nil
		}
		return "", fmt.Errorf(unexpectedStatusTemplateConstant, artifactCheck.SourceFile, downloadResponse.StatusCode, artifactCheck.URL)
	default:
		return "", fmt.Errorf(unexpectedStatusTemplateConstant, artifactCheck.SourceFile, downloadResponse.StatusCode, artifactCheck.URL)
	}
}
