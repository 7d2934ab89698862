// Package ports defines the interfaces (ports) that connect the pipeline in
// internal/app to infrastructure adapters.
//
// # Port Interfaces
//
//   - [Browser] and [Element]: browser automation (chromedp or the static
//     goquery driver)
//   - [Transcriber]: audio-to-text recognition
//   - [TableStore]: rectangular file persistence (xlsx)
//   - [StatusRepository]: last-run status persistence
//   - [HTTPClient]: HTTP request abstraction for dependency injection
//   - [Logger]: structured logging abstraction
//
// The application layer depends only on these interfaces; adapters under
// internal/adapters provide the implementations.
package ports
