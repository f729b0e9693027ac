package render

import (
	"fmt"
	"strings"
)

// OpenGL blend enums. rlgl takes these raw values.
const (
	GLZero                  int32 = 0
	GLOne                   int32 = 1
	GLSrcColor              int32 = 0x0300
	GLOneMinusSrcColor      int32 = 0x0301
	GLSrcAlpha              int32 = 0x0302
	GLOneMinusSrcAlpha      int32 = 0x0303
	GLDstAlpha              int32 = 0x0304
	GLOneMinusDstAlpha      int32 = 0x0305
	GLDstColor              int32 = 0x0306
	GLOneMinusDstColor      int32 = 0x0307
	GLSrcAlphaSaturate      int32 = 0x0308
	GLConstantColor         int32 = 0x8001
	GLOneMinusConstantColor int32 = 0x8002
	GLConstantAlpha         int32 = 0x8003
	GLOneMinusConstantAlpha int32 = 0x8004

	GLFuncAdd             int32 = 0x8006
	GLMin                 int32 = 0x8007
	GLMax                 int32 = 0x8008
	GLFuncSubtract        int32 = 0x800A
	GLFuncReverseSubtract int32 = 0x800B
)

var blendFactors = map[string]int32{
	"ZERO":                     GLZero,
	"ONE":                      GLOne,
	"SRC_COLOR":                GLSrcColor,
	"ONE_MINUS_SRC_COLOR":      GLOneMinusSrcColor,
	"SRC_ALPHA":                GLSrcAlpha,
	"ONE_MINUS_SRC_ALPHA":      GLOneMinusSrcAlpha,
	"DST_ALPHA":                GLDstAlpha,
	"ONE_MINUS_DST_ALPHA":      GLOneMinusDstAlpha,
	"DST_COLOR":                GLDstColor,
	"ONE_MINUS_DST_COLOR":      GLOneMinusDstColor,
	"SRC_ALPHA_SATURATE":       GLSrcAlphaSaturate,
	"CONSTANT_COLOR":           GLConstantColor,
	"ONE_MINUS_CONSTANT_COLOR": GLOneMinusConstantColor,
	"CONSTANT_ALPHA":           GLConstantAlpha,
	"ONE_MINUS_CONSTANT_ALPHA": GLOneMinusConstantAlpha,
}

var blendEquations = map[string]int32{
	"FUNC_ADD":              GLFuncAdd,
	"ADD":                   GLFuncAdd,
	"MIN":                   GLMin,
	"MAX":                   GLMax,
	"FUNC_SUBTRACT":         GLFuncSubtract,
	"SUBTRACT":              GLFuncSubtract,
	"FUNC_REVERSE_SUBTRACT": GLFuncReverseSubtract,
	"REVERSE_SUBTRACT":      GLFuncReverseSubtract,
}

func lookupEnum(table map[string]int32, kind, name, fallback string) (int32, error) {
	if name == "" {
		name = fallback
	}
	v, ok := table[strings.TrimPrefix(strings.ToUpper(name), "GL_")]
	if !ok {
		return 0, fmt.Errorf("unknown blend %s %q", kind, name)
	}
	return v, nil
}

// isConstantFactor reports whether f reads the constant blend color.
func isConstantFactor(f int32) bool {
	return f >= GLConstantColor && f <= GLOneMinusConstantAlpha
}
