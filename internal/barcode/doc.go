// Package barcode maps reader identifiers onto symbology decoders and
// decodes still frames through a pluggable Backend.
//
// Reader identifiers follow the naming used by browser scanning engines
// ("ean_reader", "code_128_reader", ...) so that scanner configuration files
// stay portable. The default backend is built on gozxing.
package barcode
