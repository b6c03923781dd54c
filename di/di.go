// Package di wires the monitor's components with samber/do.
package di

import "github.com/samber/do/v2"

// Injector 类型别名
type Injector = do.Injector

// RootScope 类型别名
type RootScope = do.RootScope

// 使用示例:
//
//	injector := di.New()
//	di.RegisterProviders(injector, cfg)
//	svc := do.MustInvoke[*monitor.Service](injector)

// New 创建新的根注入器
var New = do.New
