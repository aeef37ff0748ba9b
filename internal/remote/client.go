// Package remote lists repositories and repository items through the Azure DevOps Git REST API.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/temirov/rtree/internal/types"
)

const (
	defaultAPITimeout     = 30 * time.Second
	defaultUserAgent      = "rtree-remote-client"
	apiVersionValue       = "7.1"
	headerAuthorization   = "Authorization"
	headerAccept          = "Accept"
	headerUserAgent       = "User-Agent"
	acceptJSON            = "application/json"
	queryAPIVersion       = "api-version"
	queryScopePath        = "scopePath"
	queryRecursionLevel   = "recursionLevel"
	apiPathSegment        = "_apis"
	gitPathSegment        = "git"
	repositoriesSegment   = "repositories"
	itemsSegment          = "items"
	pathSeparator         = "/"
	maximumErrorBodyBytes = 8 * 1024

	errorUnexpectedStatusFormat = "unexpected status %d for %s: %s"
	errorDecodeFormat           = "decode response for %s: %w"
)

// RecursionLevel selects how much of the hierarchy one item listing returns.
type RecursionLevel string

const (
	// RecursionFull lists every descendant of the scope path.
	RecursionFull RecursionLevel = "Full"
	// RecursionOneLevel lists the scope path and its immediate children.
	RecursionOneLevel RecursionLevel = "OneLevel"
)

var (
	errMissingAPIBase    = errors.New("remote base URL is required")
	errMissingProject    = errors.New("remote project is required")
	errMissingRepository = errors.New("repository name is required")
)

type httpClient interface {
	Do(request *http.Request) (*http.Response, error)
}

type repositoryListPayload struct {
	Value []repositoryPayload `json:"value"`
}

type repositoryPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type itemListPayload struct {
	Count int           `json:"count"`
	Value []itemPayload `json:"value"`
}

type itemPayload struct {
	Path     string `json:"path"`
	IsFolder bool   `json:"isFolder"`
}

// Client issues item listing requests for one project.
type Client struct {
	client                   httpClient
	apiBase                  string
	project                  string
	userAgent                string
	timeout                  time.Duration
	authorizationHeaderValue string
}

// NewClient returns a client using httpClient, or a default http.Client when nil.
func NewClient(client httpClient) Client {
	if client == nil {
		client = &http.Client{Timeout: defaultAPITimeout}
	}
	return Client{
		client:    client,
		userAgent: defaultUserAgent,
		timeout:   defaultAPITimeout,
	}
}

func (remoteClient Client) WithAPIBase(base string) Client {
	if base == "" {
		return remoteClient
	}
	remoteClient.apiBase = strings.TrimRight(base, pathSeparator)
	return remoteClient
}

func (remoteClient Client) WithProject(project string) Client {
	remoteClient.project = strings.Trim(project, pathSeparator)
	return remoteClient
}

func (remoteClient Client) WithUserAgent(agent string) Client {
	if agent == "" {
		return remoteClient
	}
	remoteClient.userAgent = agent
	return remoteClient
}

func (remoteClient Client) WithTimeout(duration time.Duration) Client {
	if duration <= 0 {
		return remoteClient
	}
	remoteClient.timeout = duration
	if clientWithTimeout, ok := remoteClient.client.(*http.Client); ok {
		clientWithTimeout.Timeout = duration
	}
	return remoteClient
}

// WithAuthorizationHeader sets the Authorization header value sent verbatim with every request.
func (remoteClient Client) WithAuthorizationHeader(value string) Client {
	remoteClient.authorizationHeaderValue = strings.TrimSpace(value)
	return remoteClient
}

// ListRepositories returns the repositories of the project ordered by name.
func (remoteClient Client) ListRepositories(ctx context.Context) ([]types.Repository, error) {
	apiURL, buildErr := remoteClient.buildURL(nil, nil)
	if buildErr != nil {
		return nil, buildErr
	}
	var payload repositoryListPayload
	if err := remoteClient.getJSON(ctx, apiURL, &payload); err != nil {
		return nil, err
	}
	repositories := make([]types.Repository, 0, len(payload.Value))
	for _, repository := range payload.Value {
		if repository.Name == "" {
			continue
		}
		repositories = append(repositories, types.Repository{ID: repository.ID, Name: repository.Name})
	}
	sort.SliceStable(repositories, func(left, right int) bool {
		return strings.ToLower(repositories[left].Name) < strings.ToLower(repositories[right].Name)
	})
	return repositories, nil
}

// ListItems lists the items under scopePath in repository. The scope folder
// itself is part of the result, as returned by the API.
func (remoteClient Client) ListItems(ctx context.Context, repository string, scopePath string, recursion RecursionLevel) ([]types.Entry, error) {
	if strings.TrimSpace(repository) == "" {
		return nil, errMissingRepository
	}
	query := url.Values{}
	query.Set(queryScopePath, normalizeScopePath(scopePath))
	query.Set(queryRecursionLevel, string(recursion))
	apiURL, buildErr := remoteClient.buildURL([]string{repository, itemsSegment}, query)
	if buildErr != nil {
		return nil, buildErr
	}
	var payload itemListPayload
	if err := remoteClient.getJSON(ctx, apiURL, &payload); err != nil {
		return nil, err
	}
	entries := make([]types.Entry, 0, len(payload.Value))
	for _, item := range payload.Value {
		entries = append(entries, types.Entry{Path: item.Path, IsDirectory: item.IsFolder})
	}
	return entries, nil
}

// ListTree returns the bulk flat listing of repository under scopePath.
func (remoteClient Client) ListTree(ctx context.Context, repository string, scopePath string) ([]types.Entry, error) {
	return remoteClient.ListItems(ctx, repository, scopePath, RecursionFull)
}

// ListFolder returns the immediate children of folderPath, without the folder itself.
func (remoteClient Client) ListFolder(ctx context.Context, repository string, folderPath string) ([]types.Entry, error) {
	entries, err := remoteClient.ListItems(ctx, repository, folderPath, RecursionOneLevel)
	if err != nil {
		return nil, err
	}
	normalizedFolder := normalizeScopePath(folderPath)
	children := make([]types.Entry, 0, len(entries))
	for _, entry := range entries {
		if normalizeScopePath(entry.Path) == normalizedFolder {
			continue
		}
		children = append(children, entry)
	}
	return children, nil
}

func (remoteClient Client) getJSON(ctx context.Context, apiURL string, target interface{}) error {
	request, requestErr := remoteClient.buildRequest(ctx, apiURL)
	if requestErr != nil {
		return requestErr
	}
	response, responseErr := remoteClient.client.Do(request)
	if responseErr != nil {
		return responseErr
	}
	defer response.Body.Close()
	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(response.Body, maximumErrorBodyBytes))
		return fmt.Errorf(errorUnexpectedStatusFormat, response.StatusCode, apiURL, string(body))
	}
	if decodeErr := json.NewDecoder(response.Body).Decode(target); decodeErr != nil {
		return fmt.Errorf(errorDecodeFormat, apiURL, decodeErr)
	}
	return nil
}

func (remoteClient Client) buildRequest(ctx context.Context, rawURL string) (*http.Request, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	request, requestErr := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if requestErr != nil {
		return nil, requestErr
	}
	if remoteClient.userAgent != "" {
		request.Header.Set(headerUserAgent, remoteClient.userAgent)
	}
	if remoteClient.authorizationHeaderValue != "" {
		request.Header.Set(headerAuthorization, remoteClient.authorizationHeaderValue)
	}
	request.Header.Set(headerAccept, acceptJSON)
	return request, nil
}

// buildURL returns {base}/{project}/_apis/git/repositories[/segments...] with the API version set.
func (remoteClient Client) buildURL(segments []string, query url.Values) (string, error) {
	if remoteClient.apiBase == "" {
		return "", errMissingAPIBase
	}
	if remoteClient.project == "" {
		return "", errMissingProject
	}
	parsedURL, parseErr := url.Parse(remoteClient.apiBase)
	if parseErr != nil {
		return "", parseErr
	}
	pathSegments := []string{strings.TrimSuffix(parsedURL.Path, pathSeparator), remoteClient.project, apiPathSegment, gitPathSegment, repositoriesSegment}
	pathSegments = append(pathSegments, segments...)
	parsedURL.Path = strings.Join(pathSegments, pathSeparator)
	parsedURL.RawPath = ""
	if query == nil {
		query = url.Values{}
	}
	query.Set(queryAPIVersion, apiVersionValue)
	parsedURL.RawQuery = query.Encode()
	return parsedURL.String(), nil
}

// normalizeScopePath returns folderPath with exactly one leading separator and no trailing one.
func normalizeScopePath(folderPath string) string {
	return pathSeparator + strings.Trim(strings.TrimSpace(folderPath), pathSeparator)
}
