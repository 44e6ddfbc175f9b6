// Package pendingtx tracks gift payments and media uploads that were started
// but not yet confirmed, so an app killed mid-transaction can resume or
// surface them on the next launch.
//
// Records are persisted as two JSON lists and expire after a TTL; expired
// entries are swept lazily on read, and the list is only rewritten when a
// sweep actually dropped something.
package pendingtx
