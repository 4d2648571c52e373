package instrument

import (
  "sort"
  "strings"

  "github.com/rs/zerolog/log"
)

// Spec is the textual form of an instrument declaration: `name=vna1,addr=...,timeout=5s`.
type Spec map[string]string

const (
  SpecFieldName = "name"
  SpecFieldAddress = "addr"
)

func NewSpec(s string) Spec {
  spec := Spec{}
  entries := strings.Split(s, ",")

  for _, entry := range entries {
    if strings.TrimSpace(entry) == "" {
      continue
    }

    parts := strings.SplitN(entry, "=", 2)

    if len(parts) != 2 {
      log.Warn().Str("Entry", entry).Msg("Skipping invalid instrument spec entry")
      continue
    }

    spec[strings.ToLower(strings.TrimSpace(parts[0]))] = strings.TrimSpace(parts[1])
  }

  return spec
}

func (s Spec) Name() string {
  return s[SpecFieldName]
}

func (s Spec) Addr() string {
  return s[SpecFieldAddress]
}

func (s Spec) String() string {
  keys := make([]string, 0, len(s))

  for k := range s {
    keys = append(keys, k)
  }

  sort.Strings(keys)

  entries := make([]string, len(keys))

  for i, k := range keys {
    entries[i] = k + "=" + s[k]
  }

  return strings.Join(entries, ",")
}
