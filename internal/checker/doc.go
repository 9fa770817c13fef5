// Package checker implements the passive scan engine.
//
// Architecture overview:
//
//   - PageFetcher issues one GET per URL and decodes the body to UTF-8.
//   - AnalyzeSecurityHeaders audits response headers against a fixed table of six
//     security headers and flags Server banner disclosure.
//   - InspectScripts flags <script src> references to jQuery 1.x/2.x builds using a
//     literal substring rule.
//   - Crawler drives the three above across a same-host breadth-first traversal
//     bounded by page count and depth. It is strictly sequential so visit order is
//     deterministic and the target sees at most one request at a time.
//
// Every failure is folded into the CrawlResult as a fetch_error finding; the
// engine never returns an error to its caller.
package checker
