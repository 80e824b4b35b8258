// Package qzone implements the HTTP client for the remote feed service:
// the paged listing, complete-feed expansion, like/unlike, album photo
// resolution, and the heartbeat count probe. Responses arrive as JSONP
// envelopes whose wrapper codes map onto the qzerr taxonomy.
package qzone
