// Package api provides the REST API for ChainReplay
// @title ChainReplay API
// @version 1.0
// @description REST API for searching indexed blockchain events and controlling historical replays
// @contact.name API Support
// @contact.url https://github.com/goran-ethernal/ChainReplay
// @license.name Apache 2.0
// @license.url https://www.apache.org/licenses/LICENSE-2.0.html
// @host localhost:8080
// @basePath /api/v1
// @schemes http https
package api
