// Package srcset expands preset sources into the ordered list of derivation
// jobs that back one responsive picture.
//
// A Set is an explicit ordered list rather than a map: the order of its
// entries is the order markup tags are emitted in, and density variants are
// inserted positionally in front of the source they were derived from. Expand
// validates every source before producing anything, so configuration mistakes
// surface before a single image is opened.
package srcset
