// Package ocrserver is a client for the OCR server that recognizes page
// images.
//
// The server exposes:
//
//	GET  /ocr?url=<src>[&user=&pass=]   region array for one image
//	GET  /                              status
//	POST /purge-cache                   drop cached results
//	POST /preprocess-chapter            recognize a chapter in the background
//
// [Client.FetchRegions] satisfies lifecycle.Fetcher. Responses may be cached
// in Redis with [RedisCache].
package ocrserver
