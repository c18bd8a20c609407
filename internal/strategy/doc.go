// Package strategy implements the request-generation policies for loadpulse.
//
// A [Strategy] produces the next *http.Request from nothing but its own
// internal cursor; each worker owns exactly one instance, so no strategy
// needs synchronization.
//
// [Fixed] replays one request template forever. [RangeCursor] walks a
// known-size resource in sequential byte-range chunks with a configurable
// probability of seeking to a random offset, approximating a video player;
// [DiscoverSize] probes the resource size it needs (HEAD first, then a
// one-byte range request). When the size cannot be discovered, RangeCursor
// degrades to plain GETs instead of failing the run.
package strategy
