package main

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/kndndrj/priam/core"
)

// bindArg binds a "type:value" argument, e.g. "int:42", to position.
func bindArg(stmt *core.Statement, arg string, position int) error {
	typ, raw, _ := strings.Cut(arg, ":")

	var ok bool
	switch strings.ToLower(typ) {
	case "null":
		ok = stmt.BindNull(position)
	case "text", "varchar", "ascii", "string":
		ok = stmt.BindString(raw, position)
	case "uuid", "timeuuid":
		ok = stmt.BindUUID(raw, position)
	case "int":
		n, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid int %q: %w", raw, err)
		}
		ok = stmt.BindInt32(int32(n), position)
	case "bigint", "counter":
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid bigint %q: %w", raw, err)
		}
		ok = stmt.BindInt64(n, position)
	case "smallint":
		n, err := strconv.ParseInt(raw, 10, 16)
		if err != nil {
			return fmt.Errorf("invalid smallint %q: %w", raw, err)
		}
		ok = stmt.BindInt16(int16(n), position)
	case "tinyint":
		n, err := strconv.ParseInt(raw, 10, 8)
		if err != nil {
			return fmt.Errorf("invalid tinyint %q: %w", raw, err)
		}
		ok = stmt.BindInt8(int8(n), position)
	case "boolean", "bool":
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid boolean %q: %w", raw, err)
		}
		ok = stmt.BindBoolean(b, position)
	case "double":
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("invalid double %q: %w", raw, err)
		}
		ok = stmt.BindDouble(f, position)
	case "float":
		f, err := strconv.ParseFloat(raw, 32)
		if err != nil {
			return fmt.Errorf("invalid float %q: %w", raw, err)
		}
		ok = stmt.BindFloat(float32(f), position)
	case "decimal":
		d, err := core.DecimalFromString(raw)
		if err != nil {
			return fmt.Errorf("invalid decimal %q: %w", raw, err)
		}
		ok = stmt.BindDecimal(d, position)
	case "varint":
		n, valid := new(big.Int).SetString(raw, 10)
		if !valid {
			return fmt.Errorf("invalid varint %q", raw)
		}
		ok = stmt.BindVarInt(n, position)
	case "blob":
		b, err := hex.DecodeString(strings.TrimPrefix(raw, "0x"))
		if err != nil {
			return fmt.Errorf("invalid blob %q: %w", raw, err)
		}
		ok = stmt.BindBlob(b, position)
	case "timestamp":
		ts, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return fmt.Errorf("invalid timestamp %q: %w", raw, err)
		}
		ok = stmt.BindTimestamp(ts, position)
	case "date":
		d, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return fmt.Errorf("invalid date %q: %w", raw, err)
		}
		ok = stmt.BindDate(d, position)
	case "inet":
		ok = stmt.BindInet(raw, position)
	default:
		return fmt.Errorf("unsupported bind type %q", typ)
	}

	if !ok {
		return fmt.Errorf("parameter %d does not accept %s", position, arg)
	}
	return nil
}
