// Package batch 实现 OutfitFlow 的批处理核心：并发到达的生成
// 请求按语义指纹去重，在一个累积窗口内聚合，再按兼容性分组为
// 子批，用一次上游调用摊薄延迟与 Token 成本，最后把合并响应
// 拆分回每个等待者。
//
// 组件与控制流（叶子在前）：
//
//	调用方 → 指纹 → PendingTable（插入或挂接）→ 调度状态机
//	（IDLE/ACCUMULATING/FLUSHING）→ 分组 → 执行 → 派发 → 调用方
//
// 关键不变量：
//   - 同一指纹在 pending 期间至多发起一次上游调用；
//   - 表中每条记录至少有一个等待者；
//   - 每个等待者的结果恰好被派发一次；
//   - 表锁从不跨上游 I/O 持有。
package batch
