package hermes

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/temoto/robotstxt"
)

// checkRobots fails with ErrRobotsDisallowed when the target host's
// robots.txt forbids our user agent from fetching target. A missing or
// unreadable robots.txt allows everything.
func (app *Extractor) checkRobots(ctx context.Context, target string) error {
	app.Logger.Info("Checking robots.txt")
	baseUrl, err := getBaseUrl(target)
	if err != nil {
		return err
	}
	parsed, _ := url.Parse(target)

	client := resty.New().SetTimeout(30 * time.Second)
	allowed, err := checkRobotsTxt(ctx, client, baseUrl, parsed.Path, app.engine.UserAgent)
	if err != nil {
		app.Logger.Warn("Could not read robots.txt: %v", err)
		return nil
	}
	if !allowed {
		return fmt.Errorf("%w: %s", ErrRobotsDisallowed, target)
	}
	return nil
}

func checkRobotsTxt(ctx context.Context, client *resty.Client, baseUrl, path, userAgent string) (bool, error) {
	res, err := client.R().
		SetContext(ctx).
		SetHeader("User-Agent", userAgent).
		Get(baseUrl + "/robots.txt")
	if err != nil {
		return true, err
	}

	robotsData, err := robotstxt.FromStatusAndBytes(res.StatusCode(), res.Body())
	if err != nil {
		return true, err
	}
	if path == "" {
		path = "/"
	}
	return robotsData.TestAgent(path, userAgent), nil
}
