// Package export writes EPU radiance output to files: OpenEXR images of
// octahedral levels or lat-long unwraps, raw RGBA16F texel blobs for direct
// texture upload, and tone-mapped PNG previews.
package export
