/*
Package testutil 提供 OutfitFlow 测试的共享工具和辅助函数。

# 概述

testutil 包为整个项目的单元测试提供统一的辅助能力，
避免各包重复实现相似的测试基础设施。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 异步断言: AssertEventuallyTrue / AssertEventuallyEqual，
    支持超时轮询等待条件满足
  - 时间辅助: WaitFor / WaitForChannel，等待条件或通道
  - 数据工具: MustJSON / MustParseJSON
  - 领域工厂: Wardrobe / SuggestionJSON，构造衣物与上游响应样例

# 使用示例

	ctx := testutil.TestContext(t)
	items := testutil.Wardrobe(3)
	raw := testutil.SuggestionJSON("Weekend casual", "item-1", "item-2")
*/
package testutil
