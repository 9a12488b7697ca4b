// Package outfit 定义 OutfitFlow 的领域模型与纯函数组件：
// 衣橱条目、请求类型、请求指纹、提示词构建和响应校验。
//
// 本包不依赖任何 I/O，所有函数均为纯函数，方便批处理核心
// （batch 包）在持锁之外自由调用。
package outfit
