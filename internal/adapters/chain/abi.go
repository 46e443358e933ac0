package chain

// Read-only fragments of the deployed contract ABIs. Write methods are left
// out since the service never sends transactions.

// ShipNFTABI is the ERC-721 ship collection.
const ShipNFTABI = `[
  {"inputs":[],"name":"totalSupply","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
  {"inputs":[{"name":"tokenId","type":"uint256"}],"name":"ownerOf","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
  {"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

// GameControllerABI is the staking and upgrade controller.
const GameControllerABI = `[
  {"inputs":[{"name":"user","type":"address"}],"name":"getAllNFTsStatus","outputs":[{"name":"allNFTs","type":"uint256[]"},{"name":"stakedNFTs","type":"uint256[]"},{"name":"unstakedNFTs","type":"uint256[]"}],"stateMutability":"view","type":"function"},
  {"inputs":[{"name":"tokenId","type":"uint256"}],"name":"levelOf","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
  {"inputs":[{"name":"tokenId","type":"uint256"}],"name":"getTokenImageId","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
  {"inputs":[{"name":"user","type":"address"}],"name":"getTotalPendingReward","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
  {"inputs":[{"name":"currentLevel","type":"uint8"}],"name":"upgradeCostForNext","outputs":[{"name":"tokenCost","type":"uint256"},{"name":"gem1","type":"uint256"},{"name":"gem2","type":"uint256"},{"name":"gem3","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

// GemNFTABI is the ERC-1155 gem collection.
const GemNFTABI = `[
  {"inputs":[{"name":"account","type":"address"},{"name":"id","type":"uint256"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`
