// Package staticanswer matches questions against an ordered list of canned
// answers. It is the second fallback tier, used when the upstream is down
// and no cached answer exists.
package staticanswer
